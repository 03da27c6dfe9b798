package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// RESTProvider fetches candles from a broker market-data REST API.
// Prices arrive as decimal strings and are parsed exactly before being
// normalized to float64 bars for the simulator.
type RESTProvider struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// NewRESTProvider creates a REST-backed bar provider
func NewRESTProvider(client *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) (*RESTProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("HTTP client is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &RESTProvider{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}, nil
}

// Name returns the provider name
func (p *RESTProvider) Name() string {
	return "rest"
}

// candlePayload mirrors the provider's JSON candle representation
type candlePayload struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

type candlesResponse struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Candles   []candlePayload `json:"candles"`
}

// FetchBars retrieves bars for [start, end) from the remote API
func (p *RESTProvider) FetchBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error) {
	endpoint, err := p.buildURL(symbol, timeframe, start, end)
	if err != nil {
		return nil, NewProviderError(p.Name(), ErrCodeInvalidData, "failed to build request URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewProviderError(p.Name(), ErrCodeInvalidData, "failed to build request", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, NewProviderError(p.Name(), ErrCodeNetworkError, "candle request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewProviderError(p.Name(), ErrCodeRateLimitExceeded, "provider throttled the request", ErrRateLimitExceeded)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewProviderError(p.Name(), ErrCodeAuthenticationFailed, "provider rejected credentials", ErrAuthenticationFailed)
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewProviderError(p.Name(), ErrCodeNotFound, fmt.Sprintf("no candles for %s/%s", symbol, timeframe), ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, NewProviderError(p.Name(), ErrCodeServerError, fmt.Sprintf("provider returned status %d", resp.StatusCode), ErrServerError)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewProviderError(p.Name(), ErrCodeInvalidData, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body), nil)
	}

	var payload candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewProviderError(p.Name(), ErrCodeInvalidData, "failed to decode candle response", err)
	}

	bars := normalizeCandles(payload.Candles)
	p.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
		"bars":      len(bars),
	}).Debug("Fetched remote candles")

	return bars, nil
}

func (p *RESTProvider) buildURL(symbol string, timeframe models.Timeframe, start, end time.Time) (string, error) {
	base, err := url.Parse(p.baseURL + "/v1/candles")
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("symbol", symbol)
	q.Set("timeframe", string(timeframe))
	q.Set("from", start.UTC().Format(time.RFC3339))
	q.Set("to", end.UTC().Format(time.RFC3339))
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// normalizeCandles converts decimal payload candles into bars, dropping
// out-of-order or duplicate timestamps so the ordered-bars contract holds
func normalizeCandles(candles []candlePayload) []models.Bar {
	bars := make([]models.Bar, 0, len(candles))
	var lastTime time.Time
	for _, c := range candles {
		if !c.Time.After(lastTime) && len(bars) > 0 {
			continue
		}
		bars = append(bars, models.Bar{
			Time:   c.Time.UTC(),
			Open:   c.Open.InexactFloat64(),
			High:   c.High.InexactFloat64(),
			Low:    c.Low.InexactFloat64(),
			Close:  c.Close.InexactFloat64(),
			Volume: c.Volume.InexactFloat64(),
		})
		lastTime = c.Time
	}
	return bars
}
