package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"newsanalyst/internal/backend"
	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/extract"
	"newsanalyst/internal/factcheck"
	"newsanalyst/internal/gate"
	"newsanalyst/internal/model"
	"newsanalyst/internal/pipeline"
	"newsanalyst/internal/scrape"
	"newsanalyst/internal/sentiment"
	"newsanalyst/internal/store"
)

// loadConfig layers the config file and environment over the defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app owns the wired pipeline and the resources that need closing.
type app struct {
	orchestrator *pipeline.Orchestrator
	sentiment    *sentiment.Analyzer
	store        store.Store
	log          *zap.Logger
}

// newApp wires the full pipeline from configuration. With no external
// backends configured, the built-in heuristic provider covers claim
// extraction, verification, and sentiment so the tool works offline.
func newApp(cfg *model.Config, log *zap.Logger) (*app, error) {
	dispatcher := dispatch.New(cfg.RateLimit, cfg.Dispatch, log)

	verifiers, claims, sentiments, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
	}

	analyzer := sentiment.New(sentiments, dispatcher, cfg.Sentiment, log)
	orchestrator := pipeline.New(
		scrape.New(cfg.HTTP),
		extract.New(claims, dispatcher, cfg.Article),
		factcheck.New(verifiers, dispatcher, cfg.FactCheck, log),
		analyzer,
		dispatcher,
		gate.New(cfg.Cache),
		st,
		log,
	)

	return &app{
		orchestrator: orchestrator,
		sentiment:    analyzer,
		store:        st,
		log:          log,
	}, nil
}

// buildProviders resolves the configured backends. External chat backends
// are instantiated in name order so fan-out truncation is deterministic.
func buildProviders(cfg *model.Config) ([]backend.Verifier, backend.ClaimProvider, backend.SentimentProvider, error) {
	names := make([]string, 0, len(cfg.Backends))
	for name := range cfg.Backends {
		names = append(names, name)
	}
	sort.Strings(names)

	var verifiers []backend.Verifier
	var chat *backend.ChatProvider
	for _, name := range names {
		p, err := backend.NewChatProvider(name, cfg.Backends[name])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("backend %s: %w", name, err)
		}
		verifiers = append(verifiers, p)
		if chat == nil {
			chat = p
		}
	}

	if chat != nil {
		return verifiers, chat, chat, nil
	}

	h := backend.NewHeuristicProvider()
	return []backend.Verifier{h}, h, h, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	a.sentiment.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close report store", zap.Error(err))
		}
	}
}

// writeReport renders a report as indented JSON to path, or to stdout
// when path is "-" or empty.
func writeReport(report *model.AnalysisReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
