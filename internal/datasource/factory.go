package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/repository"
)

// NewProvider creates the bar provider selected by configuration
func NewProvider(cfg config.DataSourceConfig, repos *repository.Repositories, logger *logrus.Logger) (Provider, error) {
	switch cfg.Provider {
	case "postgres":
		if repos == nil {
			return nil, fmt.Errorf("repositories are required for the postgres provider")
		}
		return NewPostgresProvider(repos.Bar, logger), nil

	case "rest":
		httpCfg := DefaultHTTPClientConfig()
		if cfg.RateLimitPerSec > 0 {
			httpCfg.RateLimit = cfg.RateLimitPerSec
		}
		if cfg.MaxRetries > 0 {
			httpCfg.MaxRetries = cfg.MaxRetries
		}
		if cfg.TimeoutSeconds > 0 {
			httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		if cfg.CircuitBreakerMax > 0 {
			httpCfg.CircuitBreakerMax = cfg.CircuitBreakerMax
		}
		client := NewRateLimitedHTTPClient(httpCfg, nil)
		return NewRESTProvider(client, cfg.RESTBaseURL, cfg.RESTAPIKey, logger)

	default:
		return nil, fmt.Errorf("unknown data source provider: %s", cfg.Provider)
	}
}
