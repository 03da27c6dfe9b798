// Package main provides the parameter optimization CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fx-optimizer/internal/backtest"
	"github.com/yourusername/fx-optimizer/internal/config"
	"github.com/yourusername/fx-optimizer/internal/database"
	"github.com/yourusername/fx-optimizer/internal/datasource"
	"github.com/yourusername/fx-optimizer/internal/logger"
	"github.com/yourusername/fx-optimizer/internal/optimizer"
	"github.com/yourusername/fx-optimizer/internal/oracle"
	"github.com/yourusername/fx-optimizer/internal/repository"
	"github.com/yourusername/fx-optimizer/internal/sink"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

var (
	configFile string
	rangesFile string
	strategy   string
	metric     string
	iterations int
	concurrent int
	seed       int64
	noPersist  bool

	appLogger *logrus.Logger
	cfg       *config.Config
	db        *database.DB
	repos     *repository.Repositories
	opt       *optimizer.Optimizer
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yaml", "Path to configuration file")

	runCmd.Flags().StringVar(&rangesFile, "ranges", "", "Path to JSON file with parameter ranges")
	runCmd.Flags().StringVar(&strategy, "strategy", "", "Search strategy: grid, random, bayesian")
	runCmd.Flags().StringVar(&metric, "metric", "", "Objective metric (e.g. sharpe_ratio, profit_factor, net_profit)")
	runCmd.Flags().IntVar(&iterations, "iterations", 0, "Maximum candidate evaluations")
	runCmd.Flags().IntVar(&concurrent, "concurrency", 0, "Concurrent evaluations")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "PRNG seed for reproducible searches")
	runCmd.Flags().BoolVar(&noPersist, "no-persist", false, "Skip persisting candidate results")

	topCmd.Flags().StringVar(&metric, "metric", "sharpe_ratio", "Metric to rank stored results by")
	topCmd.Flags().IntVar(&iterations, "limit", 10, "Number of results to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(topCmd)
}

var rootCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search a strategy's hyperparameter space via backtesting",
	Long:  `Runs grid, random or local-search optimization over backtest jobs and reports the best-scoring parameter sets.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a parameter optimization",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		defer closeDependencies()
		return runOptimization(cmd.Context())
	},
}

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show top performing stored backtest results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		defer closeDependencies()
		return showTopResults(cmd.Context())
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
	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	provider, err := datasource.NewProvider(cfg.DataSource, repos, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create data provider: %w", err)
	}

	orc := oracle.NewCachedClient(oracle.NewHTTPClient(&cfg.OracleService, appLogger), &cfg.OracleService, appLogger)

	var resultSink sink.ResultSink
	if noPersist {
		resultSink = sink.NewNoopSink()
	} else {
		resultSink, err = sink.NewPostgresSink(repos, appLogger)
		if err != nil {
			return fmt.Errorf("failed to create result sink: %w", err)
		}
	}

	runner, err := backtest.NewRunner(provider, orc, resultSink, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}
	opt, err = optimizer.NewOptimizer(runner, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}
	return nil
}

func closeDependencies() {
	if db != nil {
		db.Close()
	}
}

func runOptimization(ctx context.Context) error {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return fmt.Errorf("invalid backtest config: %w", err)
	}
	btConfig.ModelVersion = cfg.OracleService.ModelVersion

	ranges, err := loadRanges(rangesFile)
	if err != nil {
		return err
	}

	req := optimizer.Request{
		Config:        btConfig,
		Ranges:        ranges,
		Strategy:      cfg.Optimizer.Strategy,
		Metric:        cfg.Optimizer.Metric,
		MaxIterations: cfg.Optimizer.MaxIterations,
		Concurrency:   cfg.Optimizer.Concurrency,
		Seed:          cfg.Optimizer.Seed,
	}
	if strategy != "" {
		req.Strategy = strategy
	}
	if metric != "" {
		req.Metric = metric
	}
	if iterations > 0 {
		req.MaxIterations = iterations
	}
	if concurrent > 0 {
		req.Concurrency = concurrent
	}
	if seed != 0 {
		req.Seed = seed
	}

	resp, err := opt.Optimize(ctx, req)
	if err != nil {
		return err
	}

	printResponse(resp)
	return nil
}

// loadRanges reads parameter ranges from a JSON file, falling back to the
// built-in search space
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
		"stop_loss_pips":       {Min: 10, Max: 50, Step: 10},
		"take_profit_pips":     {Min: 20, Max: 100, Step: 20},
		"min_confidence":       {Min: 0.5, Max: 0.9, Step: 0.1},
		"risk_per_trade":       {Min: 0.005, Max: 0.03, Step: 0.005},
		"nanpin_interval_pips": {Min: 10, Max: 40, Step: 10},
		"nanpin_max_count":     {Min: 0, Max: 3, Step: 1, Integer: true},
	}
}

func printResponse(resp *optimizer.Response) {
	fmt.Println("\n=== Optimization Report ===")
	fmt.Printf("Strategy: %s  Metric: %s\n", resp.Strategy, resp.Metric)
	fmt.Printf("Evaluated: %d (valid: %d, invalid: %d, failed: %d)\n",
		resp.TotalEvaluated, resp.ValidCount, resp.InvalidCount, resp.FailedCount)
	fmt.Printf("Duration: %v\n", resp.Elapsed)

	if resp.BestResult == nil {
		fmt.Println("No valid candidates found")
		return
	}

	fmt.Printf("\nBest Score: %s\n", backtest.FormatRatio(resp.BestScore))
	fmt.Println("Best Parameters:")
	for name, value := range resp.BestParams {
		fmt.Printf("  %s: %g\n", name, value)
	}

	if resp.Analysis != nil {
		dist := resp.Analysis.Distribution
		fmt.Printf("\nScore Distribution (n=%d): mean=%.4f std=%.4f min=%.4f median=%.4f max=%.4f\n",
			dist.Count, dist.Mean, dist.StdDev, dist.Min, dist.Median, dist.Max)
		fmt.Printf("Convergence: %s\n", resp.Analysis.Convergence)

		if len(resp.Analysis.Sensitivity) > 0 {
			fmt.Println("Parameter Sensitivity:")
			for _, s := range resp.Analysis.Sensitivity {
				fmt.Printf("  %s: %+.4f\n", s.Name, s.Correlation)
			}
		}
	}
}

func showTopResults(ctx context.Context) error {
	records, err := repos.BacktestResult.GetTopPerforming(ctx, metric, iterations)
	if err != nil {
		return fmt.Errorf("failed to query top results: %w", err)
	}

	fmt.Printf("\n=== Top %d by %s ===\n", len(records), metric)
	for i, record := range records {
		fmt.Printf("%2d. %s %s  sharpe=%.2f pf=%s dd=%.1f%% trades=%d net=%.0f\n",
			i+1, record.Symbol, record.Timeframe,
			record.SharpeRatio, backtest.FormatRatio(record.ProfitFactor),
			record.MaxDrawdownPercent, record.TotalTrades, record.NetProfit)
	}
	return nil
}
