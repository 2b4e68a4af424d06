package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// Concurrent redemptions of the same refresh token must produce exactly one
// new pair; every other caller fails and the session is revoked as a reuse.
func TestConcurrentRefreshSingleWinner(t *testing.T) {
	engine, store := newTestEngine(t, nil)
	store.add(t, "carol", "correct-horse-battery", RoleUser)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "carol", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	type outcome struct {
		pair TokenPair
		err  error
	}
	results := make(chan outcome, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			got, err := engine.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
			results <- outcome{pair: got, err: err}
		}()
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for res := range results {
		switch {
		case res.err == nil:
			winners++
			if res.pair.AccessToken == "" || res.pair.RefreshToken == "" {
				t.Fatal("winner received incomplete pair")
			}
		case errors.Is(res.err, ErrRefreshInvalid):
			losers++
		default:
			t.Fatalf("unexpected refresh error: %v", res.err)
		}
	}

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if losers != n-1 {
		t.Fatalf("expected %d losers, got %d", n-1, losers)
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[MetricRefreshSuccess]; got != 1 {
		t.Fatalf("refresh success counter = %d, want 1", got)
	}
	if got := snap.Counters[MetricRefreshFailure]; got != n-1 {
		t.Fatalf("refresh failure counter = %d, want %d", got, n-1)
	}
}
