// Package oracle provides clients for the strategy inference service.
package oracle

import (
	"context"
	"time"

	"github.com/yourusername/fx-optimizer/internal/models"
)

// Features carries the bar-aligned inputs for one inference call.
// RecentCloses is a trailing window ending at the current bar's close.
type Features struct {
	Symbol       string             `json:"symbol"`
	Timeframe    models.Timeframe   `json:"timeframe"`
	BarTime      time.Time          `json:"bar_time"`
	Bar          models.Bar         `json:"bar"`
	RecentCloses []float64          `json:"recent_closes"`
	ModelParams  map[string]float64 `json:"model_params,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
}

// Prediction is the oracle's output for one bar
type Prediction struct {
	Signal     models.Signal `json:"signal"`
	Confidence float64       `json:"confidence"`
}

// Oracle returns a discrete trading signal with a confidence for bar-aligned
// features. Implementations are stateless from the caller's perspective.
type Oracle interface {
	Infer(ctx context.Context, features Features) (Prediction, error)
}

// Func adapts a plain function to the Oracle interface
type Func func(ctx context.Context, features Features) (Prediction, error)

// Infer calls f
func (f Func) Infer(ctx context.Context, features Features) (Prediction, error) {
	return f(ctx, features)
}
