// Package weather integrates the IPMA open-data API as the platform's
// temperature forecast source. All outbound calls go through a resilient
// transport that adds circuit breaking, retries with exponential backoff,
// and mapping of HTTP failures onto the upstream error codes, so a flaky
// weather service degrades forecasts instead of breaking them.
package weather

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"kynex/internal/types"
)

// RetryPolicy configures the retry behavior of the transport.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the retry defaults for weather calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// transport wraps an *http.Client with a circuit breaker and retry loop.
// Weather requests are all bodyless GETs, which keeps retries trivial.
type transport struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	policy  RetryPolicy
	sleepFn func(time.Duration)
}

func newTransport(httpClient *http.Client, policy RetryPolicy) *transport {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "weather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return &transport{
		client:  httpClient,
		breaker: cb,
		policy:  policy,
		sleepFn: time.Sleep,
	}
}

// get executes the request, retrying on 429 and 5xx. The caller closes the
// response body on success.
func (t *transport) get(req *http.Request) (*http.Response, error) {
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-B3-TraceId", traceID)
	}

	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + t.policy.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := t.breaker.Execute(func() (*http.Response, error) {
			r, doErr := t.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		// An open breaker will not recover within the retry window.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if attempt < maxAttempts-1 {
			t.sleepFn(t.backoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, mapUpstreamError(lastResp, lastErr)
}

// backoff honors Retry-After when present, otherwise applies exponential
// backoff with full jitter clamped to [MinWait, MaxWait].
func (t *transport) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
				return min(time.Duration(seconds)*time.Second, t.policy.MaxWait)
			}
		}
	}

	base := float64(t.policy.MinWait) * math.Pow(2, float64(attempt))
	base = math.Min(base, float64(t.policy.MaxWait))
	minWait := float64(t.policy.MinWait)
	if base <= minWait {
		return t.policy.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

func mapUpstreamError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited,
			"circuit breaker is open; weather service unavailable", err)
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited,
				"weather service rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(types.ErrCodeUpstreamWeather,
				fmt.Sprintf("weather service returned %d after retries", resp.StatusCode), err)
		}
	}
	return types.NewAppError(types.ErrCodeUpstreamWeather, "weather request failed", err)
}
