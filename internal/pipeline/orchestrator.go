// Package pipeline drives one article through the analysis state
// machine: fetch, extract, parallel fact-check and sentiment, aggregate,
// persist. The dedup gate guarantees one in-flight run per fingerprint.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/gate"
	"newsanalyst/internal/model"
	"newsanalyst/internal/scrape"
	"newsanalyst/internal/store"
)

// State names one phase of an analysis run.
type State string

const (
	StateCreated    State = "created"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StateAggregate  State = "aggregating"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Fetcher is the scraper contract consumed by the orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.FetchedArticle, error)
}

// ClaimExtractor turns a fetched article into ordered claims.
type ClaimExtractor interface {
	Extract(ctx context.Context, article *model.FetchedArticle) ([]model.Claim, error)
}

// FactChecker aggregates per-claim verdicts. It never fails the run.
type FactChecker interface {
	CheckClaims(ctx context.Context, claims []model.Claim, articleText string) model.FactCheckResult
}

// SentimentAnalyzer scores article sentiment.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*model.SentimentResult, error)
}

// Orchestrator owns the collaborators of one analysis pipeline and
// passes them explicitly to every run; there is no ambient state.
type Orchestrator struct {
	fetcher    Fetcher
	extractor  ClaimExtractor
	factcheck  FactChecker
	sentiment  SentimentAnalyzer
	dispatcher *dispatch.Dispatcher
	gate       *gate.Gate
	store      store.Store // nil disables persistence
	log        *zap.Logger
	now        func() time.Time
}

// New creates an orchestrator.
func New(fetcher Fetcher, extractor ClaimExtractor, factcheck FactChecker, sentiment SentimentAnalyzer,
	dispatcher *dispatch.Dispatcher, g *gate.Gate, st store.Store, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		extractor:  extractor,
		factcheck:  factcheck,
		sentiment:  sentiment,
		dispatcher: dispatcher,
		gate:       g,
		store:      st,
		log:        log,
		now:        time.Now,
	}
}

// Analyze runs one article through the pipeline, deduplicating against
// concurrent and recent runs for the same fingerprint. It returns either
// a report (possibly flagged degraded or low-confidence) or a typed
// OrchestrationError; the gate entry is completed on every exit path so
// no waiter is ever orphaned. Context cancellation and deadline expiry
// both surface as the DeadlineExceeded kind; the wrapped ctx.Err()
// distinguishes them.
func (o *Orchestrator) Analyze(ctx context.Context, req model.ArticleRequest) (*model.AnalysisReport, error) {
	key := model.RequestFingerprint(req)
	log := o.log.With(zap.String("url", req.URL), zap.String("fingerprint", key[:20]))

	out, owner, err := o.gate.Acquire(ctx, key)
	if err != nil {
		return nil, &model.OrchestrationError{Kind: model.OrchDeadlineExceeded, Err: err}
	}
	if !owner {
		log.Debug("served from gate", zap.Bool("cached", out.Err == nil))
		return out.Report, out.Err
	}

	// Owner path. The deferred completion covers abnormal exits
	// (including panics); Complete is idempotent, so the normal-path
	// completion below always wins when it runs first.
	completed := false
	defer func() {
		if !completed {
			o.gate.Complete(key, gate.Outcome{Err: &model.OrchestrationError{
				Kind: model.OrchDeadlineExceeded,
				Err:  fmt.Errorf("run abandoned: %w", nonNil(ctx.Err())),
			}})
		}
	}()

	report, runErr := o.run(ctx, req, log)
	if runErr != nil {
		o.gate.Complete(key, gate.Outcome{Err: runErr})
		completed = true
		return nil, runErr
	}

	o.gate.Complete(key, gate.Outcome{Report: report})
	completed = true
	return report, nil
}

// Lookup serves a persisted report without triggering a computation.
func (o *Orchestrator) Lookup(ctx context.Context, req model.ArticleRequest) (*model.AnalysisReport, error) {
	if o.store == nil {
		return nil, store.ErrNotFound
	}
	return o.store.Get(ctx, model.RequestFingerprint(req))
}

// run executes the state machine for one owned request.
func (o *Orchestrator) run(ctx context.Context, req model.ArticleRequest, log *zap.Logger) (*model.AnalysisReport, *model.OrchestrationError) {
	start := o.now()

	// Fetching.
	log.Debug("state transition", zap.String("state", string(StateFetching)))
	article, ferr := o.fetch(ctx, req)
	if ferr != nil {
		if ctx.Err() != nil {
			return nil, o.failed(log, model.OrchDeadlineExceeded, ctx.Err())
		}
		return nil, o.failed(log, model.OrchFetchFailed, ferr)
	}

	// Extracting.
	log.Debug("state transition", zap.String("state", string(StateExtracting)))
	claims, eerr := o.extractor.Extract(ctx, article)
	if eerr != nil {
		if ctx.Err() != nil {
			return nil, o.failed(log, model.OrchDeadlineExceeded, ctx.Err())
		}
		return nil, o.failed(log, model.OrchInsufficientEvidence, eerr)
	}
	log.Debug("claims extracted", zap.Int("count", len(claims)))

	// Analyzing: fact-checking and sentiment run concurrently and are
	// joined before aggregation. Neither branch can fail the other: the
	// coordinator absorbs backend failures, and a sentiment failure
	// leaves the result absent.
	log.Debug("state transition", zap.String("state", string(StateAnalyzing)))
	var factCheck model.FactCheckResult
	var sentimentResult *model.SentimentResult

	g := new(errgroup.Group)
	g.Go(func() error {
		factCheck = o.factcheck.CheckClaims(ctx, claims, article.Text)
		return nil
	})
	g.Go(func() error {
		s, err := o.sentiment.Analyze(ctx, article.Text)
		if err != nil {
			log.Warn("sentiment analysis failed", zap.Error(err))
			return nil
		}
		sentimentResult = s
		return nil
	})
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, o.failed(log, model.OrchDeadlineExceeded, ctx.Err())
	}

	// Aggregating always succeeds once reached.
	log.Debug("state transition", zap.String("state", string(StateAggregate)))
	report := &model.AnalysisReport{
		Request:      req,
		Article:      *article,
		FactCheck:    factCheck,
		Sentiment:    sentimentResult,
		ComputedAt:   o.now().UTC(),
		Version:      model.AnalysisVersion,
		ProcessingMS: o.now().Sub(start).Milliseconds(),
	}

	// Persisting is best-effort: a store failure degrades the report
	// instead of discarding the computed analysis.
	log.Debug("state transition", zap.String("state", string(StatePersisting)))
	if o.store != nil {
		if err := o.store.Put(ctx, report); err != nil {
			report.Degraded = true
			report.Warnings = append(report.Warnings, fmt.Sprintf("persist report: %v", err))
			log.Warn("report persistence failed", zap.Error(err))
		}
	}

	log.Info("analysis complete",
		zap.String("state", string(StateDone)),
		zap.Int("claims", len(claims)),
		zap.Float64("overall_confidence", factCheck.OverallConfidence),
		zap.Bool("low_confidence", factCheck.LowConfidence),
		zap.Bool("degraded", report.Degraded),
		zap.Int64("processing_ms", report.ProcessingMS))
	return report, nil
}

// fetch resolves the article either from the raw-content override or
// through the dispatcher-wrapped scraper.
func (o *Orchestrator) fetch(ctx context.Context, req model.ArticleRequest) (*model.FetchedArticle, error) {
	if req.RawContent != "" {
		return scrape.FromRawContent(req.URL, req.RawContent), nil
	}

	var article *model.FetchedArticle
	err := o.dispatcher.Do(ctx, "scraper", func(ctx context.Context) error {
		var ferr error
		article, ferr = o.fetcher.Fetch(ctx, req.URL)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (o *Orchestrator) failed(log *zap.Logger, kind model.OrchestrationErrorKind, err error) *model.OrchestrationError {
	log.Warn("analysis failed",
		zap.String("state", string(StateFailed)),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return &model.OrchestrationError{Kind: kind, Err: err}
}

// DegradedError exposes a degraded success as the StoreDegraded boundary
// error with the report attached, for callers that treat persistence as
// mandatory.
func DegradedError(report *model.AnalysisReport) *model.OrchestrationError {
	if report == nil || !report.Degraded {
		return nil
	}
	return &model.OrchestrationError{
		Kind:   model.OrchStoreDegraded,
		Report: report,
		Err:    errors.New("report computed but not persisted"),
	}
}

func nonNil(err error) error {
	if err == nil {
		return errors.New("owner exited without completing")
	}
	return err
}
