package retry

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

func TestNextUsesRetryAfterMsVerbatim(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after-ms", "1500")
	d := Next(&HeaderError{Headers: h}, 1)
	if d.Delay != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms, got %v", d.Delay)
	}
}

func TestNextUsesRetryAfterSecondsCeiled(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2.2")
	d := Next(&HeaderError{Headers: h}, 1)
	if d.Delay != 2200*time.Millisecond {
		t.Fatalf("expected 2200ms, got %v", d.Delay)
	}
}

func TestNextUsesRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(5 * time.Second).UTC()
	h := http.Header{}
	h.Set("retry-after", future.Format(http.TimeFormat))
	d := Next(&HeaderError{Headers: h}, 1)
	if d.Delay <= 0 || d.Delay > 6*time.Second {
		t.Fatalf("expected delay near 5s, got %v", d.Delay)
	}
}

func TestNextUncappedWhenHeadersPresentButUnusable(t *testing.T) {
	d := Next(&HeaderError{Headers: http.Header{}}, 6)
	// attempt 6: 2000 * 2^5 = 64000ms, above the 30s cap — must NOT be capped.
	want := 64000 * time.Millisecond
	if d.Delay != want {
		t.Fatalf("expected uncapped %v, got %v", want, d.Delay)
	}
}

func TestNextCappedWhenNoHeadersAtAll(t *testing.T) {
	d := Next(nil, 6)
	if d.Delay != capDelay {
		t.Fatalf("expected capped %v, got %v", capDelay, d.Delay)
	}
}

func TestNextBoundedClampsDelayToRemainingBudget(t *testing.T) {
	start := time.Now().Add(-599 * time.Second)
	d := NextBounded(nil, 10, start, DefaultMaxDuration)
	if d.GiveUp {
		t.Fatalf("expected a clamped delay, not give up, got %+v", d)
	}
	if d.Delay <= 0 || d.Delay > time.Second {
		t.Fatalf("expected delay clamped to remaining budget (>0, <=1s), got %v", d.Delay)
	}
}

func TestNextBoundedGivesUpWhenDelayExceedsTotalBudget(t *testing.T) {
	start := time.Now()
	d := NextBounded(FromHeaders(http.Header{}), 20, start, DefaultMaxDuration)
	if !d.GiveUp {
		t.Fatalf("expected give up when uncapped backoff exceeds the total budget, got %+v", d)
	}
}

func TestNextBoundedGivesUpWhenElapsedPastDeadline(t *testing.T) {
	start := time.Now().Add(-700 * time.Second)
	d := NextBounded(nil, 1, start, DefaultMaxDuration)
	if !d.GiveUp {
		t.Fatal("expected give up once elapsed exceeds max duration")
	}
}

func TestNextBoundedReturnsRemainingBudgetCappedDelay(t *testing.T) {
	start := time.Now()
	d := NextBounded(nil, 1, start, DefaultMaxDuration)
	if d.GiveUp {
		t.Fatal("did not expect give up immediately at start")
	}
	if d.Delay != initialDelay {
		t.Fatalf("expected first attempt delay %v, got %v", initialDelay, d.Delay)
	}
}

func TestSleepResolvesAfterDuration(t *testing.T) {
	err := Sleep(context.Background(), time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
}

func TestSleepAbortsOnCancel(t *testing.T) {
	cancel := make(chan struct{})
	close(cancel)
	err := Sleep(context.Background(), time.Second, cancel)
	if !coreerr.Is(err, coreerr.KindAborted) {
		t.Fatalf("expected Aborted, got %v", err)
	}
}
