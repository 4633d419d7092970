// Package worker runs batches of article requests through the analysis
// pipeline with bounded concurrency.
package worker

import (
	"context"
	"sync"

	"newsanalyst/internal/model"
)

// Analyzer is the pipeline contract consumed by the pool.
type Analyzer interface {
	Analyze(ctx context.Context, req model.ArticleRequest) (*model.AnalysisReport, error)
}

// Outcome pairs one request with its report or failure.
type Outcome struct {
	Request model.ArticleRequest
	Report  *model.AnalysisReport
	Err     error
}

// Pool fans article requests out to a fixed number of analysis workers.
// Submission and collection run concurrently: one goroutine submits and
// calls Finish, while the caller drains Collect. Collecting after all
// submissions would deadlock once the result buffer fills.
type Pool struct {
	analyzer    Analyzer
	workers     int
	queue       chan model.ArticleRequest
	results     chan Outcome
	wg          sync.WaitGroup
	finishOnce  sync.Once
	collectOnce sync.Once
}

// NewPool creates a pool of analysis workers.
func NewPool(analyzer Analyzer, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		analyzer: analyzer,
		workers:  workers,
		queue:    make(chan model.ArticleRequest, workers*2),
		results:  make(chan Outcome, workers*2),
	}
}

// Start launches the workers. Each worker drains the queue until it is
// closed or the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-p.queue:
			if !ok {
				return
			}
			report, err := p.analyzer.Analyze(ctx, req)
			select {
			case p.results <- Outcome{Request: req, Report: report, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Submit queues one request. It drops the request if the context is done.
func (p *Pool) Submit(ctx context.Context, req model.ArticleRequest) {
	select {
	case <-ctx.Done():
	case p.queue <- req:
	}
}

// Finish signals that no further requests will be submitted. Workers
// exit once the queue is drained.
func (p *Pool) Finish() {
	p.finishOnce.Do(func() { close(p.queue) })
}

// Collect streams worker outcomes until every worker has exited. It must
// run concurrently with submission so workers never block on a full
// result buffer.
func (p *Pool) Collect() []Outcome {
	go func() {
		p.wg.Wait()
		p.collectOnce.Do(func() { close(p.results) })
	}()

	var outcomes []Outcome
	for o := range p.results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}
