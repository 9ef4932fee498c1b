package weather

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kynex/internal/types"
)

const districtsJSON = `{"data": [
	{"local": "Lisboa", "globalIdLocal": 1110600},
	{"local": "Porto", "globalIdLocal": 1131200},
	{"local": "Braga", "globalIdLocal": 1030300}
]}`

const forecastJSON = `{"data": [
	{"forecastDate": "2026-03-10", "tMin": "9.1", "tMax": "17.4"},
	{"forecastDate": "2026-03-11", "tMin": "8.0", "tMax": "16.2"},
	{"forecastDate": "2026-03-12", "tMin": "bad", "tMax": "15.0"}
]}`

func noSleepPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, MinWait: time.Millisecond, MaxWait: 2 * time.Millisecond}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewClient(server.URL, server.Client(), noSleepPolicy())
	c.transport.sleepFn = func(time.Duration) {}
	return c
}

func ipmaHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/distrits-islands.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(districtsJSON))
	})
	mux.HandleFunc("/forecast/meteorology/cities/daily/1030300.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(forecastJSON))
	})
	return mux
}

func TestResolveStation(t *testing.T) {
	c := newTestClient(t, ipmaHandler())

	id, err := c.ResolveStation(context.Background(), "Braga")
	require.NoError(t, err)
	assert.Equal(t, "1030300", id)

	// Case-insensitive, whitespace-tolerant.
	id, err = c.ResolveStation(context.Background(), "  pOrTo ")
	require.NoError(t, err)
	assert.Equal(t, "1131200", id)
}

func TestResolveStationUnknownCity(t *testing.T) {
	c := newTestClient(t, ipmaHandler())

	_, err := c.ResolveStation(context.Background(), "Atlantis")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestStationDirectoryCached(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/distrits-islands.json", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(districtsJSON))
	})
	c := newTestClient(t, mux)

	for i := 0; i < 3; i++ {
		_, err := c.ResolveStation(context.Background(), "Lisboa")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestDailyForecastParsesAndSkipsBadRows(t *testing.T) {
	c := newTestClient(t, ipmaHandler())

	days, err := c.DailyForecast(context.Background(), "1030300")
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), days[0].Date)
	assert.InDelta(t, 9.1, days[0].TMin, 1e-9)
	assert.InDelta(t, 17.4, days[0].TMax, 1e-9)
	assert.InDelta(t, 13.25, days[0].Avg(), 1e-9)
}

func TestRetriesOn500ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/meteorology/cities/daily/77.json", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(forecastJSON))
	})
	c := newTestClient(t, mux)

	days, err := c.DailyForecast(context.Background(), "77")
	require.NoError(t, err)
	assert.Len(t, days, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExhaustedRetriesMapToUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/meteorology/cities/daily/77.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, mux)

	_, err := c.DailyForecast(context.Background(), "77")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())
}

func TestRateLimitMapsToRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/meteorology/cities/daily/77.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c := newTestClient(t, mux)

	_, err := c.DailyForecast(context.Background(), "77")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
}

func TestNon5xxStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast/meteorology/cities/daily/77.json", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	_, err := c.DailyForecast(context.Background(), "77")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

// A 4xx result returns on the first attempt with its body still readable;
// the retry loop must never hand back a response it already closed.
func TestClientErrorResponseBodyReadable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad station"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tr := newTransport(server.Client(), noSleepPolicy())
	tr.sleepFn = func(time.Duration) {}

	req, err := http.NewRequest(http.MethodGet, server.URL+"/status", nil)
	require.NoError(t, err)

	resp, err := tr.get(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"bad station"}`, string(body))
}
