package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"newsanalyst/internal/model"
)

func testGate(ttl time.Duration, maxEntries int) *Gate {
	return New(model.CacheConfig{TTL: ttl, MaxEntries: maxEntries})
}

func reportFor(url string) *model.AnalysisReport {
	return &model.AnalysisReport{
		Request: model.ArticleRequest{URL: url},
		Article: model.FetchedArticle{URL: url},
	}
}

func TestAcquire_FirstCallerOwns(t *testing.T) {
	g := testGate(time.Minute, 10)

	_, owner, err := g.Acquire(context.Background(), "k1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !owner {
		t.Fatal("first caller should own the entry")
	}
	if g.InFlight() != 1 {
		t.Errorf("expected 1 in-flight entry, got %d", g.InFlight())
	}
}

func TestAcquire_CompletedOutcomeServedImmediately(t *testing.T) {
	g := testGate(time.Minute, 10)
	want := reportFor("http://example.com/a")

	_, _, _ = g.Acquire(context.Background(), "k1")
	g.Complete("k1", Outcome{Report: want})

	out, owner, err := g.Acquire(context.Background(), "k1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if owner {
		t.Error("completed entry must not create a new owner")
	}
	if out.Report != want {
		t.Error("expected the recorded report")
	}
}

func TestAcquire_SingleOwnerUnderConcurrency(t *testing.T) {
	g := testGate(time.Minute, 10)
	want := reportFor("http://example.com/a")

	const callers = 50
	var owners int32
	var mu sync.Mutex
	outcomes := make([]Outcome, 0, callers)

	var wg sync.WaitGroup
	var ownerOnce sync.Once
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, owner, err := g.Acquire(context.Background(), "k1")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			if owner {
				mu.Lock()
				owners++
				mu.Unlock()
				// Simulate the computation, then release all waiters.
				ownerOnce.Do(func() {
					time.Sleep(10 * time.Millisecond)
					g.Complete("k1", Outcome{Report: want})
				})
				return
			}
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if owners != 1 {
		t.Fatalf("expected exactly 1 owner, got %d", owners)
	}
	if len(outcomes) != callers-1 {
		t.Fatalf("expected %d waiter outcomes, got %d", callers-1, len(outcomes))
	}
	for _, out := range outcomes {
		if out.Report != want {
			t.Fatal("waiter received a different outcome")
		}
	}
}

func TestComplete_FailedOutcomeSharedByWaiters(t *testing.T) {
	g := testGate(time.Minute, 10)
	wantErr := &model.OrchestrationError{Kind: model.OrchFetchFailed}

	_, _, _ = g.Acquire(context.Background(), "k1")

	got := make(chan error, 1)
	go func() {
		out, _, err := g.Acquire(context.Background(), "k1")
		if err != nil {
			got <- err
			return
		}
		got <- out.Err
	}()

	time.Sleep(5 * time.Millisecond)
	g.Complete("k1", Outcome{Err: wantErr})

	var oe *model.OrchestrationError
	if err := <-got; !errors.As(err, &oe) || oe.Kind != model.OrchFetchFailed {
		t.Errorf("waiter expected fetch-failed outcome, got %v", err)
	}
}

func TestAcquire_WaiterReleasedByDeadline(t *testing.T) {
	g := testGate(time.Minute, 10)
	_, _, _ = g.Acquire(context.Background(), "k1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := g.Acquire(ctx, "k1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("waiter blocked past its deadline")
	}

	// The abandoned computation can still complete normally.
	g.Complete("k1", Outcome{Report: reportFor("http://example.com/a")})
}

func TestComplete_SecondCompletionIgnored(t *testing.T) {
	g := testGate(time.Minute, 10)
	want := reportFor("http://example.com/a")

	_, _, _ = g.Acquire(context.Background(), "k1")
	g.Complete("k1", Outcome{Report: want})
	g.Complete("k1", Outcome{Err: errors.New("late failure")})

	out, _, err := g.Acquire(context.Background(), "k1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if out.Report != want || out.Err != nil {
		t.Error("second completion must not overwrite the first")
	}
}

func TestAcquire_ExpiredEntryStartsFreshComputation(t *testing.T) {
	g := testGate(20*time.Millisecond, 10)

	_, _, _ = g.Acquire(context.Background(), "k1")
	g.Complete("k1", Outcome{Report: reportFor("http://example.com/a")})

	time.Sleep(40 * time.Millisecond)

	_, owner, err := g.Acquire(context.Background(), "k1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !owner {
		t.Error("expired entry should yield a new owner")
	}
}

func TestEviction_LeastRecentlyProducedFirst(t *testing.T) {
	g := testGate(time.Minute, 2)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		_, _, _ = g.Acquire(context.Background(), key)
		g.Complete(key, Outcome{Report: reportFor("http://example.com/" + key)})
		time.Sleep(2 * time.Millisecond)
	}

	// k0 was produced first and must have been evicted.
	_, owner, _ := g.Acquire(context.Background(), "k0")
	if !owner {
		t.Error("oldest entry should have been evicted")
	}
	g.Complete("k0", Outcome{Report: reportFor("http://example.com/k0")})

	out, owner, _ := g.Acquire(context.Background(), "k2")
	if owner || out.Report == nil {
		t.Error("newest entry should still be cached")
	}
}
