// Package config provides configuration management for the FX Optimizer application.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Pip size and lot notional are fixed for JPY quotes, so only JPY-quoted
// pairs are accepted until an instrument metadata table exists.
var fxSymbolPattern = regexp.MustCompile(`^[A-Z]{3}JPY$`)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("timeframe", validateTimeframe)
	_ = v.RegisterValidation("fxsymbol", validateFXSymbol)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateTimeframe validates a bar timeframe value
func validateTimeframe(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "M15", "M30", "H1", "H4":
		return true
	default:
		return false
	}
}

// validateFXSymbol validates a currency pair symbol such as USDJPY
func validateFXSymbol(fl validator.FieldLevel) bool {
	return fxSymbolPattern.MatchString(fl.Field().String())
}

// validateCrossField performs validations spanning multiple fields
func validateCrossField(cfg *Config) error {
	start, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("invalid backtest start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("invalid backtest end date: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("backtest start date must be before end date")
	}

	if cfg.Backtest.UseNanpin && cfg.Backtest.NanpinMaxCount <= 0 {
		return fmt.Errorf("nanpin_max_count must be positive when use_nanpin is enabled")
	}
	if cfg.Backtest.UseNanpin && cfg.Backtest.NanpinIntervalPips <= 0 {
		return fmt.Errorf("nanpin_interval_pips must be positive when use_nanpin is enabled")
	}

	if cfg.DataSource.Provider == "rest" && cfg.DataSource.RESTBaseURL == "" {
		return fmt.Errorf("rest_base_url is required for the rest data source provider")
	}

	return nil
}

// formatValidationErrors converts validator errors to a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(messages, "; "))
}
