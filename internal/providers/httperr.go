package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/retry"
)

// httpError is what sendWithRetry returns for a non-200 upstream response
// that it either does not retry or gave up retrying. It carries the response headers so callers that want to
// inspect the upstream failure more closely than "retry or don't" still can.
type httpError struct {
	provider   string
	statusCode int
	headers    http.Header
	body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.provider, e.statusCode, e.body)
}

func (e *httpError) StatusCode() int { return e.statusCode }

func (e *httpError) Headers() http.Header { return e.headers }

// ShouldRetry reports whether statusCode is one the controller should back
// off and retry, rather than surface to the caller immediately.
func ShouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode == http.StatusServiceUnavailable || // 503
		statusCode == http.StatusGatewayTimeout // 504
}

// sendWithRetry POSTs body to url, retrying ShouldRetry status codes through
// internal/retry's deadline-bounded backoff controller. The request is
// rebuilt fresh on every attempt since its body must be re-read.
func sendWithRetry(ctx context.Context, client *http.Client, providerID, url string, body []byte, headers map[string]string) (*http.Response, error) {
	start := time.Now()

	for attempt := 1; ; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, coreerr.IO("create request", err)
		}
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, coreerr.IO("send request", err)
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		herr := &httpError{provider: providerID, statusCode: resp.StatusCode, headers: resp.Header, body: string(respBody)}

		if !ShouldRetry(resp.StatusCode) {
			return nil, herr
		}

		decision := retry.NextBounded(retry.FromHeaders(resp.Header), attempt, start, retry.DefaultMaxDuration)
		if decision.GiveUp {
			return nil, herr
		}
		if err := retry.Sleep(ctx, decision.Delay, nil); err != nil {
			return nil, err
		}
	}
}
