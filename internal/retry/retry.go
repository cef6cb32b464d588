// Package retry implements the deadline-bounded backoff calculator of spec
// §4.4. It only computes delays — callers decide whether and how to loop,
// the same division of labor as dive's retry package, whose APIError
// interface FromDiveError lets this controller accept an error that was
// never built with response headers in mind.
package retry

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

const (
	initialDelay = 2000 * time.Millisecond
	factor       = 2.0
	capDelay     = 30000 * time.Millisecond

	// DefaultMaxDuration is the bounded variant's default wall-clock budget.
	DefaultMaxDuration = 600000 * time.Millisecond
)

// HeaderError is an upstream failure carrying whatever response headers
// were captured, or none at all. A nil *HeaderError (as opposed to one with
// an empty Headers) means the upstream failure carried no response at all,
// which changes whether Next applies a cap.
type HeaderError struct {
	Headers http.Header
}

// APIError is the narrower interface dive's provider clients use for
// retryable errors: just enough to learn whether a status code warrants a
// retry at all, with no response headers captured.
type APIError interface {
	error
	StatusCode() int
}

// FromDiveError adapts an APIError into a HeaderError with no headers, so
// callers built against dive's provider clients can still drive this
// controller's uncapped-backoff path.
func FromDiveError(err APIError) *HeaderError {
	return &HeaderError{}
}

// FromHeaders wraps a response's headers directly, for callers that did
// capture them. A nil or empty Header still yields a non-nil *HeaderError,
// so Next takes the "headers present but unusable" branch rather than the
// "no response at all" one.
func FromHeaders(h http.Header) *HeaderError {
	return &HeaderError{Headers: h}
}

// Decision is the outcome of computing the next retry delay.
type Decision struct {
	Delay  time.Duration
	GiveUp bool
}

// Next computes the delay before attempt (1-based), per spec §4.4:
//  1. retry-after-ms, if parseable as a number, is used verbatim.
//  2. else retry-after as a number of seconds, rounded up to milliseconds.
//  3. else retry-after as an HTTP-date, if in the future.
//  4. else, if err is non-nil but neither header was usable, uncapped backoff.
//  5. else (err is nil: no headers at all), backoff capped at 30s.
func Next(err *HeaderError, attempt int) Decision {
	if attempt < 1 {
		attempt = 1
	}

	if err != nil {
		headers := err.Headers
		if ms := headers.Get("retry-after-ms"); ms != "" {
			if n, perr := strconv.ParseFloat(ms, 64); perr == nil {
				return Decision{Delay: time.Duration(n) * time.Millisecond}
			}
		}
		if ra := headers.Get("retry-after"); ra != "" {
			if n, perr := strconv.ParseFloat(ra, 64); perr == nil {
				return Decision{Delay: time.Duration(math.Ceil(n*1000)) * time.Millisecond}
			}
			if when, perr := http.ParseTime(ra); perr == nil {
				if d := time.Until(when); d > 0 {
					return Decision{Delay: time.Duration(math.Ceil(float64(d.Milliseconds()))) * time.Millisecond}
				}
			}
		}
		// Headers were present but none were usable: uncapped backoff.
		return Decision{Delay: backoff(attempt)}
	}

	// No headers at all: capped backoff.
	d := backoff(attempt)
	if d > capDelay {
		d = capDelay
	}
	return Decision{Delay: d}
}

func backoff(attempt int) time.Duration {
	return time.Duration(float64(initialDelay) * math.Pow(factor, float64(attempt-1)))
}

// NextBounded is the bounded variant of Next: it additionally enforces a
// wall-clock budget measured from startTime. It returns GiveUp if the
// budget is already exhausted, if the unbounded delay would exceed the
// total budget, or if the resulting delay is non-positive; otherwise the
// delay is clamped to whatever budget remains.
func NextBounded(err *HeaderError, attempt int, startTime time.Time, maxDuration time.Duration) Decision {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}

	elapsed := time.Since(startTime)
	if elapsed >= maxDuration {
		return Decision{GiveUp: true}
	}

	decision := Next(err, attempt)
	if decision.Delay > maxDuration || decision.Delay <= 0 {
		return Decision{GiveUp: true}
	}

	remaining := maxDuration - elapsed
	if decision.Delay > remaining {
		decision.Delay = remaining
	}

	return Decision{Delay: decision.Delay}
}

// Sleep resolves after d or returns Aborted when cancel fires, whichever
// happens first, or when ctx is done. The timer is always cleared before
// returning.
func Sleep(ctx context.Context, d time.Duration, cancel <-chan struct{}) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-cancel:
		return coreerr.Aborted()
	case <-ctx.Done():
		return coreerr.Aborted()
	}
}
