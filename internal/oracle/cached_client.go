package oracle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/config"
)

// CachedClient wraps an Oracle with prediction caching. Predictions are
// keyed by bar, model version and model hyperparameters so every optimizer
// candidate over the same window reuses one inference call per bar without
// ever seeing another candidate's predictions.
type CachedClient struct {
	oracle Oracle
	cache  *PredictionCache
	logger *logrus.Logger
}

// NewCachedClient creates a caching wrapper around the given oracle
func NewCachedClient(oracle Oracle, cfg *config.OracleServiceConfig, logger *logrus.Logger) *CachedClient {
	return &CachedClient{
		oracle: oracle,
		cache: NewPredictionCache(
			time.Duration(cfg.CacheTTLSeconds)*time.Second,
			cfg.CacheMaxSize,
		),
		logger: logger,
	}
}

// Infer retrieves a prediction, serving repeated bar lookups from cache
func (c *CachedClient) Infer(ctx context.Context, features Features) (Prediction, error) {
	key := CacheKey{
		Symbol:       features.Symbol,
		Timeframe:    features.Timeframe,
		BarTime:      features.BarTime,
		ModelVersion: features.ModelVersion,
		ParamsDigest: digestParams(features.ModelParams),
	}

	if pred, found := c.cache.Get(key); found {
		PredictionsTotal.WithLabelValues("cache", "true").Inc()
		return pred, nil
	}

	pred, err := c.oracle.Infer(ctx, features)
	if err != nil {
		return Prediction{}, err
	}

	c.cache.Set(key, pred)
	return pred, nil
}

// ClearCache clears all cached predictions
func (c *CachedClient) ClearCache() {
	c.cache.Clear()
}

// CacheStats returns cache statistics
func (c *CachedClient) CacheStats() (hits, misses uint64, hitRatio float64) {
	return c.cache.Stats()
}
