package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/models"
)

// HTTPClient calls the inference service over HTTP
type HTTPClient struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	modelVersion string
	retries      int
	logger       *logrus.Logger
}

// NewHTTPClient creates a new HTTP client for the inference service
func NewHTTPClient(cfg *config.OracleServiceConfig, logger *logrus.Logger) *HTTPClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		baseURL:      cfg.URL,
		apiKey:       cfg.APIKey,
		modelVersion: cfg.ModelVersion,
		retries:      cfg.RetryAttempts,
		logger:       logger,
	}
}

// inferRequest represents the inference request payload
type inferRequest struct {
	Symbol       string             `json:"symbol"`
	Timeframe    string             `json:"timeframe"`
	BarTime      time.Time          `json:"bar_time"`
	Open         float64            `json:"open"`
	High         float64            `json:"high"`
	Low          float64            `json:"low"`
	Close        float64            `json:"close"`
	Volume       float64            `json:"volume"`
	RecentCloses []float64          `json:"recent_closes"`
	ModelParams  map[string]float64 `json:"model_params,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
}

// inferResponse represents the inference response
type inferResponse struct {
	Signal       string  `json:"signal"`
	Confidence   float64 `json:"confidence"`
	ModelVersion string  `json:"model_version"`
}

// Infer requests a trading signal for one bar's features
func (c *HTTPClient) Infer(ctx context.Context, features Features) (Prediction, error) {
	start := time.Now()

	version := features.ModelVersion
	if version == "" {
		version = c.modelVersion
	}

	reqBody := inferRequest{
		Symbol:       features.Symbol,
		Timeframe:    string(features.Timeframe),
		BarTime:      features.BarTime,
		Open:         features.Bar.Open,
		High:         features.Bar.High,
		Low:          features.Bar.Low,
		Close:        features.Bar.Close,
		Volume:       features.Bar.Volume,
		RecentCloses: features.RecentCloses,
		ModelParams:  features.ModelParams,
		ModelVersion: version,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Prediction{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		pred, err := c.inferOnce(ctx, jsonData)
		if err == nil {
			PredictionsTotal.WithLabelValues("http", "false").Inc()
			PredictionLatency.Observe(time.Since(start).Seconds())
			return pred, nil
		}
		lastErr = err

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"symbol":  features.Symbol,
			"error":   err,
		}).Warn("Inference request failed")
	}

	ErrorsTotal.WithLabelValues("network").Inc()
	return Prediction{}, lastErr
}

func (c *HTTPClient) inferOnce(ctx context.Context, jsonData []byte) (Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/predict", bytes.NewBuffer(jsonData))
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		ErrorsTotal.WithLabelValues("http_error").Inc()
		return Prediction{}, fmt.Errorf("inference request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var inferResp inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&inferResp); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return validatePrediction(inferResp)
}

// validatePrediction checks the response against the signal and confidence
// contracts before it reaches the simulator
func validatePrediction(resp inferResponse) (Prediction, error) {
	signal := models.Signal(resp.Signal)
	switch signal {
	case models.SignalHold, models.SignalBuy, models.SignalSell:
	default:
		ErrorsTotal.WithLabelValues("invalid_signal").Inc()
		return Prediction{}, fmt.Errorf("%w: unknown signal %q", ErrInvalidPrediction, resp.Signal)
	}

	if resp.Confidence < 0 || resp.Confidence > 1 {
		ErrorsTotal.WithLabelValues("invalid_confidence").Inc()
		return Prediction{}, fmt.Errorf("%w: confidence %f out of range", ErrInvalidPrediction, resp.Confidence)
	}

	return Prediction{Signal: signal, Confidence: resp.Confidence}, nil
}

// HealthCheck checks inference service health
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	return nil
}
