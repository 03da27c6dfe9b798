package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fx-optimizer/internal/models"
)

func testHTTPClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, nil)
}

func candleJSON(at time.Time, price string) map[string]interface{} {
	return map[string]interface{}{
		"time":   at.Format(time.RFC3339),
		"open":   price,
		"high":   price,
		"low":    price,
		"close":  price,
		"volume": "1500",
	}
}

func TestRESTProviderFetchBars(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/candles", r.URL.Path)
		assert.Equal(t, "USDJPY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "H1", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol":    "USDJPY",
			"timeframe": "H1",
			"candles": []map[string]interface{}{
				candleJSON(base, "145.123"),
				candleJSON(base.Add(time.Hour), "145.456"),
			},
		})
	}))
	defer server.Close()

	provider, err := NewRESTProvider(testHTTPClient(), server.URL, "key-123", nil)
	require.NoError(t, err)

	bars, err := provider.FetchBars(context.Background(), "USDJPY", models.TimeframeH1, base, base.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, base, bars[0].Time)
	assert.InDelta(t, 145.123, bars[0].Close, 1e-9)
	assert.InDelta(t, 1500.0, bars[0].Volume, 1e-9)
}

func TestRESTProviderErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrAuthenticationFailed},
		{"forbidden", http.StatusForbidden, ErrAuthenticationFailed},
		{"not found", http.StatusNotFound, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider, err := NewRESTProvider(testHTTPClient(), server.URL, "", nil)
			require.NoError(t, err)

			_, err = provider.FetchBars(context.Background(), "USDJPY", models.TimeframeH1, time.Now().Add(-time.Hour), time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestRESTProviderRequiresConfig(t *testing.T) {
	_, err := NewRESTProvider(nil, "http://example.com", "", nil)
	assert.Error(t, err)

	_, err = NewRESTProvider(testHTTPClient(), "", "", nil)
	assert.Error(t, err)
}

func TestNormalizeCandlesDropsOutOfOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candlePayload{
		{Time: base},
		{Time: base.Add(time.Hour)},
		{Time: base.Add(time.Hour)},        // duplicate
		{Time: base.Add(30 * time.Minute)}, // regression
		{Time: base.Add(2 * time.Hour)},
	}

	bars := normalizeCandles(candles)
	require.Len(t, bars, 3)
	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Time.After(bars[i-1].Time))
	}
}

func TestProviderErrorUnwraps(t *testing.T) {
	err := NewProviderError("rest", ErrCodeRateLimitExceeded, "throttled", ErrRateLimitExceeded)

	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Contains(t, err.Error(), "rest")
	assert.Contains(t, err.Error(), "throttled")
}

func TestCandleRetryPolicyStatusCodes(t *testing.T) {
	ctx := context.Background()

	retry, err := candleRetryPolicy(ctx, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	require.NoError(t, err)
	assert.True(t, retry)

	retry, err = candleRetryPolicy(ctx, &http.Response{StatusCode: http.StatusBadGateway}, nil)
	require.NoError(t, err)
	assert.True(t, retry)

	retry, err = candleRetryPolicy(ctx, &http.Response{StatusCode: http.StatusNotFound}, nil)
	require.NoError(t, err)
	assert.False(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = candleRetryPolicy(cancelled, &http.Response{StatusCode: http.StatusOK}, nil)
	assert.False(t, retry)
	assert.Error(t, err)
}

func TestRateLimitedClientRetriesRateLimitResponses(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	cfg.RateLimit = 1000
	client := NewRateLimitedHTTPClient(cfg, nil)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestRateLimitedClientDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 3
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	cfg.RateLimit = 1000
	client := NewRateLimitedHTTPClient(cfg, nil)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, attempts)
}

func TestRateLimitedClientCircuitBreaker(t *testing.T) {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 0
	cfg.RateLimit = 1000
	cfg.CircuitBreakerMax = 2
	cfg.Timeout = 100 * time.Millisecond
	client := NewRateLimitedHTTPClient(cfg, nil)

	// unroutable address fails fast and trips the breaker
	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), "http://127.0.0.1:1")
		require.Error(t, err)
	}

	_, err := client.Get(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestFetchBarsRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider, err := NewRESTProvider(testHTTPClient(), server.URL, "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = provider.FetchBars(ctx, "USDJPY", models.TimeframeH1, time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}
