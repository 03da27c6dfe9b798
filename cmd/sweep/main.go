// Package main provides the symbol/timeframe sweep CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/datasource"
	"github.com/yourusername/fx-optimizer/internal/health"
	"github.com/yourusername/fx-optimizer/internal/logger"
	"github.com/yourusername/fx-optimizer/internal/models"
	"github.com/yourusername/fx-optimizer/internal/optimizer"
	"github.com/yourusername/fx-optimizer/internal/oracle"
	"github.com/yourusername/fx-optimizer/internal/repository"
	"github.com/yourusername/fx-optimizer/internal/scheduler"
	"github.com/yourusername/fx-optimizer/internal/sink"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

var (
	configFile string
	rangesFile string
	schedule   string
	seed       int64

	appLogger *logrus.Logger
	cfg       *config.Config
	db        *database.DB
	sweeper   *optimizer.SweepOptimizer
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&rangesFile, "ranges", "", "Path to JSON file with parameter ranges")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "Cron expression for recurring sweeps (empty runs once)")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "PRNG seed for reproducible sweeps")
}

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Optimize across a symbol and timeframe grid",
	Long:  `Runs the parameter optimizer over every configured symbol/timeframe pair and aggregates cross-cell rankings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer closeDependencies()
		if schedule != "" {
			return runScheduled()
		}
		return runOnce()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		if err := config.LoadSecretsFromAWS(cfg, os.Getenv("AWS_REGION"), os.Getenv("AWS_SECRET_NAME")); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	appLogger = logger.NewLogger(cfg.App.LogLevel)
	return nil
}

func setupDependencies() error {
	ctx := context.Background()

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	provider, err := datasource.NewProvider(cfg.DataSource, repos, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create data provider: %w", err)
	}

	orc := oracle.NewCachedClient(oracle.NewHTTPClient(&cfg.OracleService, appLogger), &cfg.OracleService, appLogger)

	resultSink, err := sink.NewPostgresSink(repos, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create result sink: %w", err)
	}

	runner, err := backtest.NewRunner(provider, orc, resultSink, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}
	opt, err := optimizer.NewOptimizer(runner, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}
	sweeper, err = optimizer.NewSweepOptimizer(opt, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create sweep optimizer: %w", err)
	}
	return nil
}

func closeDependencies() {
	if db != nil {
		db.Close()
	}
}

func buildSweepRequest() (optimizer.SweepRequest, error) {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return optimizer.SweepRequest{}, fmt.Errorf("invalid backtest config: %w", err)
	}
	btConfig.ModelVersion = cfg.OracleService.ModelVersion

	ranges, err := loadRanges(rangesFile)
	if err != nil {
		return optimizer.SweepRequest{}, err
	}

	timeframes := make([]models.Timeframe, 0, len(cfg.Sweep.Timeframes))
	for _, tf := range cfg.Sweep.Timeframes {
		timeframes = append(timeframes, models.Timeframe(tf))
	}

	req := optimizer.SweepRequest{
		Symbols:     cfg.Sweep.Symbols,
		Timeframes:  timeframes,
		Config:      btConfig,
		Ranges:      ranges,
		Metric:      cfg.Optimizer.Metric,
		Concurrency: cfg.Optimizer.Concurrency,
		Seed:        cfg.Optimizer.Seed,
	}
	if seed != 0 {
		req.Seed = seed
	}
	return req, nil
}

func runOnce() error {
	req, err := buildSweepRequest()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resp, err := sweeper.Sweep(ctx, req)
	if err != nil {
		return err
	}

	printSweepResponse(resp)
	return nil
}

// runScheduled keeps the process alive, exposing health and metrics while
// cron drives recurring sweeps
func runScheduled() error {
	req, err := buildSweepRequest()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var healthServer *health.Server
	if cfg.Metrics.Enabled {
		healthServer = health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Logger:      appLogger,
			DB:          db,
		})
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	sched := scheduler.NewScheduler(sweeper, appLogger)
	if err := sched.ScheduleSweep(schedule, req, func(resp *optimizer.SweepResponse) {
		printSweepResponse(resp)
	}); err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	if healthServer != nil {
		healthServer.SetReady(true)
	}

	appLogger.WithFields(logrus.Fields{
		"schedule": schedule,
		"next_run": sched.NextRun(),
	}).Info("Sweep scheduler running")

	<-ctx.Done()
	appLogger.Info("Shutting down")
	return sched.Stop()
}

func loadRanges(path string) (map[string]optimizer.ParameterRange, error) {
	if path == "" {
		return defaultRanges(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges file: %w", err)
	}
	ranges := make(map[string]optimizer.ParameterRange)
	if err := json.Unmarshal(data, &ranges); err != nil {
		return nil, fmt.Errorf("failed to parse ranges file: %w", err)
	}
	return ranges, nil
}

func defaultRanges() map[string]optimizer.ParameterRange {
	return map[string]optimizer.ParameterRange{
		"stop_loss_pips":   {Min: 10, Max: 50, Step: 10},
		"take_profit_pips": {Min: 20, Max: 100, Step: 20},
		"min_confidence":   {Min: 0.5, Max: 0.9, Step: 0.1},
		"risk_per_trade":   {Min: 0.005, Max: 0.03, Step: 0.005},
	}
}

func printSweepResponse(resp *optimizer.SweepResponse) {
	fmt.Println("\n=== Sweep Report ===")
	fmt.Printf("Cells: %d  Duration: %v\n", len(resp.Cells), resp.Elapsed)

	failed := 0
	for _, cell := range resp.Cells {
		if cell.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("Failed cells: %d\n", failed)
	}

	if resp.Best != nil {
		fmt.Printf("\nBest: %s %s score=%s\n", resp.Best.Symbol, resp.Best.Timeframe, backtest.FormatRatio(resp.Best.Score))
		for name, value := range resp.Best.Params {
			fmt.Printf("  %s: %g\n", name, value)
		}
	}

	if len(resp.SymbolRankings) > 0 {
		fmt.Println("\nSymbol Rankings:")
		for i, r := range resp.SymbolRankings {
			fmt.Printf("%2d. %s avg=%.4f max=%s (%d cells)\n", i+1, r.Key, r.AvgScore, backtest.FormatRatio(r.MaxScore), r.Cells)
		}
	}
	if len(resp.TimeframeRankings) > 0 {
		fmt.Println("\nTimeframe Rankings:")
		for i, r := range resp.TimeframeRankings {
			fmt.Printf("%2d. %s avg=%.4f max=%s (%d cells)\n", i+1, r.Key, r.AvgScore, backtest.FormatRatio(r.MaxScore), r.Cells)
		}
	}

	if len(resp.TopCombinations) > 0 {
		fmt.Println("\nTop Combinations:")
		for i, combo := range resp.TopCombinations {
			fmt.Printf("%2d. %s %s score=%s\n", i+1, combo.Symbol, combo.Timeframe, backtest.FormatRatio(combo.Score))
		}
	}
}
