// Package factcheck fans verification queries out to backends and
// aggregates their verdicts deterministically.
package factcheck

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsanalyst/internal/backend"
	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/model"
)

// labelOrder is the canonical tie-break order for weighted votes.
var labelOrder = []model.VerdictLabel{
	model.LabelDisputed,
	model.LabelFalse,
	model.LabelTrue,
	model.LabelUnverified,
}

// Coordinator queries verification backends per claim and aggregates
// verdicts into a FactCheckResult.
type Coordinator struct {
	verifiers  []backend.Verifier
	dispatcher *dispatch.Dispatcher
	cfg        model.FactCheckConfig
	log        *zap.Logger
}

// New creates a coordinator. Verifier order fixes which backends are
// queried when more are configured than max_sources_per_claim allows.
func New(verifiers []backend.Verifier, dispatcher *dispatch.Dispatcher, cfg model.FactCheckConfig, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		verifiers:  verifiers,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// CheckClaims verifies every claim and aggregates the results. Backend
// failures lower confidence but never fail the run: a claim with zero
// successful verdicts aggregates to Unverified with confidence 0, and
// the coordinator proceeds to the next claim.
func (c *Coordinator) CheckClaims(ctx context.Context, claims []model.Claim, articleText string) model.FactCheckResult {
	verdicts := make(map[string]model.Verdict, len(claims))

	var sum float64
	for _, claim := range claims {
		v := c.checkClaim(ctx, claim, articleText)
		verdicts[claim.ID] = v
		sum += v.Confidence
	}

	overall := 0.0
	if len(claims) > 0 {
		overall = sum / float64(len(claims))
	}

	return model.FactCheckResult{
		OverallConfidence: overall,
		ClaimVerdicts:     verdicts,
		LowConfidence:     len(claims) > 0 && overall < c.cfg.ConfidenceThreshold,
	}
}

// checkClaim dispatches up to max_sources_per_claim parallel queries and
// aggregates whichever succeed. Results land in a slice indexed by
// backend position, so aggregation never depends on completion order.
func (c *Coordinator) checkClaim(ctx context.Context, claim model.Claim, articleText string) model.Verdict {
	verifiers := c.verifiers
	if len(verifiers) > c.cfg.MaxSourcesPerClaim {
		verifiers = verifiers[:c.cfg.MaxSourcesPerClaim]
	}

	results := make([]*model.Verdict, len(verifiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range verifiers {
		i, v := i, v
		g.Go(func() error {
			var verdict model.Verdict
			err := c.dispatcher.Do(gctx, v.Name(), func(ctx context.Context) error {
				var callErr error
				verdict, callErr = v.Verify(ctx, claim, articleText)
				return callErr
			})
			if err != nil {
				c.log.Warn("verification query failed",
					zap.String("backend", v.Name()),
					zap.String("claim_id", claim.ID),
					zap.Error(err))
				return nil // partial failure is absorbed
			}
			results[i] = &verdict
			return nil
		})
	}
	_ = g.Wait()

	return c.aggregate(claim.ID, results)
}

// aggregate computes the backend-trust-weighted mean confidence and the
// weighted-majority label over the succeeded verdicts.
func (c *Coordinator) aggregate(claimID string, results []*model.Verdict) model.Verdict {
	var weightSum, confSum float64
	voteWeight := make(map[model.VerdictLabel]float64)
	var sources []string

	for _, v := range results {
		if v == nil {
			continue
		}
		w := c.cfg.Weight(v.Backend)
		weightSum += w
		confSum += w * v.Confidence
		voteWeight[v.Label] += w
	}

	if weightSum == 0 {
		return model.Unverified(claimID)
	}

	label := c.winningLabel(voteWeight)
	for _, v := range results {
		if v != nil && v.Label == label {
			sources = append(sources, v.EvidenceSources...)
		}
	}

	return model.Verdict{
		ClaimID:         claimID,
		Backend:         "aggregate",
		Label:           label,
		Confidence:      confSum / weightSum,
		EvidenceSources: dedupe(sources),
	}
}

// winningLabel resolves the weighted vote. Ties fall to the configured
// policy: prefer-disputed picks "disputed" whenever it is among the tied
// labels; both policies otherwise use the canonical label order, keeping
// the result independent of map iteration.
func (c *Coordinator) winningLabel(votes map[model.VerdictLabel]float64) model.VerdictLabel {
	best := 0.0
	for _, w := range votes {
		if w > best {
			best = w
		}
	}

	if c.cfg.TiePolicy == model.TiePreferDisputed && votes[model.LabelDisputed] == best {
		return model.LabelDisputed
	}
	for _, label := range labelOrder {
		if votes[label] == best {
			return label
		}
	}
	return model.LabelUnverified
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, s := range items {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
