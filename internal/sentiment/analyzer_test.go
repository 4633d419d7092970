package sentiment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"newsanalyst/internal/dispatch"
	"newsanalyst/internal/model"
)

// countingProvider records batch sizes and scores every text 0.5.
type countingProvider struct {
	mu      sync.Mutex
	batches [][]string
	calls   int32
	err     error
}

func (p *countingProvider) Name() string { return "sentiment-stub" }

func (p *countingProvider) Sentiment(_ context.Context, texts []string) ([]model.SentimentResult, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.batches = append(p.batches, texts)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	out := make([]model.SentimentResult, len(texts))
	for i := range texts {
		out[i] = model.SentimentResult{Label: model.SentimentPositive, Score: 0.5}
	}
	return out, nil
}

func testDispatcher() *dispatch.Dispatcher {
	return dispatch.New(
		model.RateLimitConfig{RequestsPerMinute: 60000, Burst: 100},
		model.DispatchConfig{CallTimeout: time.Second, MaxRetries: 1},
		nil,
	)
}

func TestAnalyze_SingleRequestFlushedByInterval(t *testing.T) {
	provider := &countingProvider{}
	a := New(provider, testDispatcher(), model.SentimentConfig{BatchSize: 8, FlushInterval: 10 * time.Millisecond}, nil)
	defer a.Close()

	result, err := a.Analyze(context.Background(), "some article text")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Score != 0.5 {
		t.Errorf("unexpected score %v", result.Score)
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Errorf("expected 1 backend call, got %d", provider.calls)
	}
}

func TestAnalyze_ConcurrentRequestsCoalesce(t *testing.T) {
	provider := &countingProvider{}
	a := New(provider, testDispatcher(), model.SentimentConfig{BatchSize: 4, FlushInterval: 50 * time.Millisecond}, nil)
	defer a.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Analyze(context.Background(), "peer article"); err != nil {
				t.Errorf("analyze failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls := atomic.LoadInt32(&provider.calls); calls != 1 {
		t.Errorf("expected 4 peers to share 1 backend call, got %d", calls)
	}
	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.batches) != 1 || len(provider.batches[0]) != 4 {
		t.Errorf("expected one batch of 4, got %v", provider.batches)
	}
}

func TestAnalyze_BackendFailureSurfaces(t *testing.T) {
	provider := &countingProvider{err: &model.BackendError{Kind: model.BackendInvalidResponse, Backend: "sentiment-stub"}}
	a := New(provider, testDispatcher(), model.SentimentConfig{BatchSize: 1, FlushInterval: 10 * time.Millisecond}, nil)
	defer a.Close()

	_, err := a.Analyze(context.Background(), "text")
	var be *model.BackendError
	if !errors.As(err, &be) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestAnalyze_CallerDeadlineReleases(t *testing.T) {
	provider := &countingProvider{}
	// Long flush interval so the request sits in the batch past the deadline.
	a := New(provider, testDispatcher(), model.SentimentConfig{BatchSize: 8, FlushInterval: time.Second}, nil)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Analyze(ctx, "text")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestAnalyze_AfterClose(t *testing.T) {
	a := New(&countingProvider{}, testDispatcher(), model.SentimentConfig{BatchSize: 1, FlushInterval: time.Millisecond}, nil)
	a.Close()

	_, err := a.Analyze(context.Background(), "text")
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error, got %v", err)
	}
}
