// Package config provides configuration management for the FX Optimizer application.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app" validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database" validate:"required"`
	OracleService OracleServiceConfig `mapstructure:"oracle_service" validate:"required"`
	DataSource    DataSourceConfig    `mapstructure:"data_source" validate:"required"`
	Backtest      BacktestConfig      `mapstructure:"backtest" validate:"required"`
	Optimizer     OptimizerConfig     `mapstructure:"optimizer" validate:"required"`
	Sweep         SweepConfig         `mapstructure:"sweep" validate:"required"`
	Metrics       MetricsConfig       `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// OracleServiceConfig represents the strategy oracle inference service configuration
type OracleServiceConfig struct {
	URL                   string `mapstructure:"url" validate:"required,url"`
	APIKey                string `mapstructure:"api_key"`
	ModelVersion          string `mapstructure:"model_version"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
	RetryAttempts         int    `mapstructure:"retry_attempts" validate:"gte=0"`
	CacheTTLSeconds       int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize          int    `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// DataSourceConfig represents historical bar data source configuration
type DataSourceConfig struct {
	Provider          string  `mapstructure:"provider" validate:"required,oneof=postgres rest"`
	RESTBaseURL       string  `mapstructure:"rest_base_url" validate:"omitempty,url"`
	RESTAPIKey        string  `mapstructure:"rest_api_key"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec" validate:"omitempty,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"omitempty,gt=0"`
}

// BacktestConfig represents backtest defaults applied when a job omits values
type BacktestConfig struct {
	Symbol             string  `mapstructure:"symbol" validate:"required,fxsymbol"`
	Timeframe          string  `mapstructure:"timeframe" validate:"required,timeframe"`
	StartDate          string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	InitialBalance     float64 `mapstructure:"initial_balance" validate:"required,gt=0"`
	RiskPerTrade       float64 `mapstructure:"risk_per_trade" validate:"required,gt=0,lte=0.1"`
	StopLossPips       float64 `mapstructure:"stop_loss_pips" validate:"required,gt=0"`
	TakeProfitPips     float64 `mapstructure:"take_profit_pips" validate:"required,gt=0"`
	MinConfidence      float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	UseNanpin          bool    `mapstructure:"use_nanpin"`
	NanpinMaxCount     int     `mapstructure:"nanpin_max_count" validate:"gte=0"`
	NanpinIntervalPips float64 `mapstructure:"nanpin_interval_pips" validate:"gte=0"`
	CommissionPerLot   float64 `mapstructure:"commission_per_lot" validate:"gte=0"`
	SpreadPips         float64 `mapstructure:"spread_pips" validate:"gte=0"`
}

// OptimizerConfig represents parameter search configuration
type OptimizerConfig struct {
	Strategy      string `mapstructure:"strategy" validate:"required,oneof=grid random bayesian"`
	MaxIterations int    `mapstructure:"max_iterations" validate:"required,gt=0"`
	Concurrency   int    `mapstructure:"concurrency" validate:"required,gt=0"`
	Metric        string `mapstructure:"metric" validate:"required"`
	Seed          int64  `mapstructure:"seed"`
}

// SweepConfig represents symbol/timeframe sweep configuration
type SweepConfig struct {
	Symbols    []string `mapstructure:"symbols" validate:"required,min=1,dive,fxsymbol"`
	Timeframes []string `mapstructure:"timeframes" validate:"required,min=1,dive,timeframe"`
	Schedule   string   `mapstructure:"schedule"`
}

// MetricsConfig represents metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
