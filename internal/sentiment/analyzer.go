// Package sentiment computes article-level sentiment. Concurrent
// requests coalesce into batches so peers analyzed at the same time
// share one backend call.
package sentiment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"newsanalyst/internal/backend"
	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/model"
)

// ErrClosed is returned for requests arriving after Close.
var ErrClosed = errors.New("sentiment analyzer closed")

type outcome struct {
	result model.SentimentResult
	err    error
}

type request struct {
	text string
	out  chan outcome
}

// Analyzer batches sentiment requests up to the configured batch size,
// flushing a partial batch after the flush interval so a lone article
// never waits for peers that will not come.
type Analyzer struct {
	provider      backend.SentimentProvider
	dispatcher    *dispatch.Dispatcher
	batchSize     int
	flushInterval time.Duration
	log           *zap.Logger

	reqs      chan *request
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates an analyzer. The batch loop starts lazily on first use.
func New(provider backend.SentimentProvider, dispatcher *dispatch.Dispatcher, cfg model.SentimentConfig, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 50 * time.Millisecond
	}
	return &Analyzer{
		provider:      provider,
		dispatcher:    dispatcher,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		log:           log,
		reqs:          make(chan *request),
		stop:          make(chan struct{}),
	}
}

// Analyze scores one article text, possibly batched with concurrent
// peers. The caller's context releases it even if the batch is still
// in flight; the batch itself is bounded by the dispatcher's timeout.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*model.SentimentResult, error) {
	select {
	case <-a.stop:
		return nil, ErrClosed
	default:
	}
	a.startOnce.Do(func() { go a.run() })

	req := &request{text: text, out: make(chan outcome, 1)}
	select {
	case a.reqs <- req:
	case <-a.stop:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-req.out:
		if out.err != nil {
			return nil, out.err
		}
		result := out.result
		return &result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the batch loop. Requests already queued are flushed;
// later requests fail with ErrClosed.
func (a *Analyzer) Close() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *Analyzer) run() {
	var batch []*request
	var flushAt <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			a.flush(batch)
		}
		batch = nil
		flushAt = nil
	}

	for {
		select {
		case req := <-a.reqs:
			batch = append(batch, req)
			if len(batch) >= a.batchSize {
				flush()
			} else if flushAt == nil {
				flushAt = time.After(a.flushInterval)
			}
		case <-flushAt:
			flush()
		case <-a.stop:
			flush()
			return
		}
	}
}

// flush issues one backend call for the whole batch and distributes the
// positional results.
func (a *Analyzer) flush(batch []*request) {
	texts := make([]string, len(batch))
	for i, req := range batch {
		texts[i] = req.text
	}

	var results []model.SentimentResult
	err := a.dispatcher.Do(context.Background(), a.provider.Name(), func(ctx context.Context) error {
		var callErr error
		results, callErr = a.provider.Sentiment(ctx, texts)
		return callErr
	})
	if err == nil && len(results) != len(batch) {
		err = &model.BackendError{
			Kind:    model.BackendInvalidResponse,
			Backend: a.provider.Name(),
			Err:     errors.New("result count mismatch"),
		}
	}
	if err != nil {
		a.log.Warn("sentiment batch failed",
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
		for _, req := range batch {
			req.out <- outcome{err: err}
		}
		return
	}

	for i, req := range batch {
		req.out <- outcome{result: results[i]}
	}
}
