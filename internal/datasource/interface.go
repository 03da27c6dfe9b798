// Package datasource provides historical bar providers for backtesting.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/fx-optimizer/internal/models"
)

// Provider defines the interface for fetching historical price bars.
// Implementations must return bars strictly increasing in time with unique
// timestamps; gaps in the series are tolerated by consumers.
type Provider interface {
	// FetchBars retrieves bars for a symbol/timeframe in [start, end)
	FetchBars(ctx context.Context, symbol string, timeframe models.Timeframe, start, end time.Time) ([]models.Bar, error)

	// Name returns the name of the provider
	Name() string
}

// Common provider errors
var (
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("data not found")
	ErrInvalidData          = errors.New("invalid data format")
	ErrNetworkError         = errors.New("network error")
	ErrServerError          = errors.New("server error")
)

// ProviderError represents errors from provider operations
type ProviderError struct {
	Source  string
	Code    string
	Message string
	Err     error
}

func (e ProviderError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error
func NewProviderError(source, code, message string, err error) ProviderError {
	return ProviderError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
)
