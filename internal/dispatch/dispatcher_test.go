package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsanalyst/internal/model"
)

func testDispatcher(maxRetries int) *Dispatcher {
	return New(
		model.RateLimitConfig{RequestsPerMinute: 60000, Burst: 100},
		model.DispatchConfig{CallTimeout: time.Second, MaxRetries: maxRetries},
		nil,
	)
}

func TestDo_Success(t *testing.T) {
	d := testDispatcher(3)
	calls := 0
	err := d.Do(context.Background(), "verify-a", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientWithBackoff(t *testing.T) {
	d := testDispatcher(3)

	var delays []time.Duration
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		delays = append(delays, dur)
		return nil
	}

	calls := 0
	err := d.Do(context.Background(), "verify-a", func(ctx context.Context) error {
		calls++
		return &model.BackendError{Kind: model.BackendTimeout, Backend: "verify-a"}
	})

	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	var be *model.BackendError
	if !errors.As(err, &be) || be.Kind != model.BackendTimeout {
		t.Errorf("expected timeout backend error, got %v", err)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(delays))
	}
	if delays[1] <= delays[0] {
		t.Errorf("expected increasing backoff, got %v then %v", delays[0], delays[1])
	}
}

func TestDo_PermanentNotRetried(t *testing.T) {
	d := testDispatcher(3)
	calls := 0
	err := d.Do(context.Background(), "verify-a", func(ctx context.Context) error {
		calls++
		return &model.BackendError{Kind: model.BackendInvalidResponse, Backend: "verify-a"}
	})
	if calls != 1 {
		t.Errorf("permanent failure retried: %d calls", calls)
	}
	var be *model.BackendError
	if !errors.As(err, &be) || be.Kind != model.BackendInvalidResponse {
		t.Errorf("expected invalid response error, got %v", err)
	}
}

func TestDo_NotFoundFetchNotRetried(t *testing.T) {
	d := testDispatcher(3)
	calls := 0
	err := d.Do(context.Background(), "scraper", func(ctx context.Context) error {
		calls++
		return &model.FetchError{Kind: model.FetchNotFound, URL: "http://example.com/x"}
	})
	if calls != 1 {
		t.Errorf("not-found retried: %d calls", calls)
	}
	var fe *model.FetchError
	if !errors.As(err, &fe) || fe.Kind != model.FetchNotFound {
		t.Errorf("expected not-found fetch error, got %v", err)
	}
}

func TestDo_CallTimeoutBecomesBackendTimeout(t *testing.T) {
	d := New(
		model.RateLimitConfig{RequestsPerMinute: 60000, Burst: 100},
		model.DispatchConfig{CallTimeout: 20 * time.Millisecond, MaxRetries: 1},
		nil,
	)
	err := d.Do(context.Background(), "verify-a", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	var be *model.BackendError
	if !errors.As(err, &be) || be.Kind != model.BackendTimeout {
		t.Errorf("expected backend timeout, got %v", err)
	}
}

func TestDo_RateLimitExceededOnDeadline(t *testing.T) {
	// 1 rpm with burst 1: second call cannot get a token within the deadline.
	d := New(
		model.RateLimitConfig{RequestsPerMinute: 1, Burst: 1},
		model.DispatchConfig{CallTimeout: time.Second, MaxRetries: 1},
		nil,
	)

	ctx := context.Background()
	if err := d.Do(ctx, "verify-a", func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	err := d.Do(short, "verify-a", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected failure waiting for token")
	}
	if !errors.Is(err, ErrRateLimitExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected rate limit or deadline error, got %v", err)
	}
}

func TestDo_CancelledContextStopsRetries(t *testing.T) {
	d := testDispatcher(5)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := d.Do(ctx, "verify-a", func(ctx context.Context) error {
		calls++
		cancel()
		return &model.BackendError{Kind: model.BackendTimeout, Backend: "verify-a"}
	})
	if calls != 1 {
		t.Errorf("expected retries to stop after cancel, got %d calls", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAllow_PerBackendBuckets(t *testing.T) {
	d := New(
		model.RateLimitConfig{RequestsPerMinute: 1, Burst: 1},
		model.DispatchConfig{CallTimeout: time.Second, MaxRetries: 1},
		nil,
	)
	if !d.Allow("verify-a") {
		t.Error("first token should be available")
	}
	if d.Allow("verify-a") {
		t.Error("bucket should be exhausted")
	}
	if !d.Allow("verify-b") {
		t.Error("other backend has its own bucket")
	}
}
