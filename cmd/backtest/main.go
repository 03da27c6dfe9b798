// Package main provides the entry point for the single-backtest CLI tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/datasource"
	"github.com/yourusername/fx-optimizer/internal/logger"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/oracle"
	"github.com/yourusername/fx-optimizer/internal/repository"
	"github.com/yourusername/fx-optimizer/internal/sink"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		symbol     = flag.String("symbol", "", "Override symbol (e.g. USDJPY)")
		timeframe  = flag.String("timeframe", "", "Override timeframe (M15, M30, H1, H4)")
		startDate  = flag.String("start-date", "", "Override start date (YYYY-MM-DD)")
		endDate    = flag.String("end-date", "", "Override end date (YYYY-MM-DD)")
		output     = flag.String("output", "", "Optional CSV output path")
		noPersist  = flag.Bool("no-persist", false, "Skip persisting results")
	)
	flag.Parse()

	ctx := context.Background()

	cfg := loadConfigWithSecrets(*configPath)
	log := logger.NewLogger(cfg.App.LogLevel)

	btConfig := buildBacktestConfig(cfg, *symbol, *timeframe, *startDate, *endDate, log)

	db, repos := connectDatabase(ctx, cfg, *noPersist, log)
	if db != nil {
		defer db.Close()
	}

	runner := buildRunner(cfg, repos, *noPersist, log)

	log.WithFields(logrus.Fields{
		"symbol":    btConfig.Symbol,
		"timeframe": btConfig.Timeframe,
	}).Info("Starting backtest")

	result, err := runner.Run(ctx, btConfig)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	fmt.Print(backtest.GenerateConsoleReport(result))

	if *output != "" {
		if err := backtest.GenerateCSVExport(result, *output); err != nil {
			log.Fatalf("Failed to write CSV export: %v", err)
		}
		log.WithField("path", *output).Info("Wrote CSV export")
	}
}

func loadConfigWithSecrets(path string) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			logrus.Fatalf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			logrus.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildBacktestConfig(cfg *config.Config, symbol, timeframe, startOverride, endOverride string, log *logrus.Logger) backtest.Config {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		log.Fatalf("Invalid backtest config: %v", err)
	}
	btConfig.ModelVersion = cfg.OracleService.ModelVersion

	if symbol != "" {
		btConfig.Symbol = symbol
	}
	if timeframe != "" {
		btConfig.Timeframe = models.Timeframe(timeframe)
	}
	if startOverride != "" {
		parsed, err := time.Parse("2006-01-02", startOverride)
		if err != nil {
			log.Fatalf("Invalid start date: %v", err)
		}
		btConfig.StartDate = parsed
	}
	if endOverride != "" {
		parsed, err := time.Parse("2006-01-02", endOverride)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
		btConfig.EndDate = parsed
	}

	if err := btConfig.Validate(); err != nil {
		log.Fatalf("Invalid backtest config: %v", err)
	}
	return btConfig
}

// connectDatabase opens the pool when the bar provider or the result sink
// needs it
func connectDatabase(ctx context.Context, cfg *config.Config, noPersist bool, log *logrus.Logger) (*database.DB, *repository.Repositories) {
	if cfg.DataSource.Provider != "postgres" && noPersist {
		return nil, nil
	}

	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	return db, repos
}

func buildRunner(cfg *config.Config, repos *repository.Repositories, noPersist bool, log *logrus.Logger) *backtest.Runner {
	provider, err := datasource.NewProvider(cfg.DataSource, repos, log)
	if err != nil {
		log.Fatalf("Failed to create data provider: %v", err)
	}

	orc := oracle.NewCachedClient(oracle.NewHTTPClient(&cfg.OracleService, log), &cfg.OracleService, log)

	var resultSink sink.ResultSink
	if noPersist || repos == nil {
		resultSink = sink.NewNoopSink()
	} else {
		resultSink, err = sink.NewPostgresSink(repos, log)
		if err != nil {
			log.Fatalf("Failed to create result sink: %v", err)
		}
	}

	runner, err := backtest.NewRunner(provider, orc, resultSink, log)
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}
	return runner
}
