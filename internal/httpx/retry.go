// Package httpx provides the bounded-retry policy shared by the service's
// outbound HTTP clients.
package httpx

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

const (
	// DefaultMaxRetries bounds re-attempts after the first try.
	DefaultMaxRetries = 3

	baseDelay = 500 * time.Millisecond
	maxDelay  = 8 * time.Second
)

// RetryableStatus reports whether a response status class is worth retrying:
// request timeout, conflict, throttling and the 5xx family.
func RetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooManyRequests:
		return true
	}
	return status >= 500 && status <= 599
}

// SleepBackoff blocks for an exponentially growing, jittered delay. The base
// delay doubles per attempt up to a cap, then is scaled by a random factor in
// [0.5, 1.0) so concurrent callers do not retry in lockstep. Returns early if
// the context is cancelled.
func SleepBackoff(ctx context.Context, attempt int) {
	d := baseDelay << uint(attempt)
	if d > maxDelay {
		d = maxDelay
	}
	jittered := time.Duration(float64(d) * (0.5 + rand.Float64()/2))
	select {
	case <-ctx.Done():
	case <-time.After(jittered):
	}
}

// Do issues a request built by newReq through client, retrying transport
// errors and retryable statuses up to maxRetries times. The request is
// rebuilt on every attempt so bodies can be re-read. Non-retryable statuses
// and exhausted retries return the last response (or error) as-is; callers
// decide what a non-2xx response means.
func Do(ctx context.Context, client *http.Client, maxRetries int, newReq func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				SleepBackoff(ctx, attempt)
				continue
			}
			return nil, lastErr
		}
		if RetryableStatus(resp.StatusCode) && attempt < maxRetries {
			resp.Body.Close()
			SleepBackoff(ctx, attempt)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}
