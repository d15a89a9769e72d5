package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cbmdev/refopt/internal/batch"
	"github.com/cbmdev/refopt/internal/cache"
	"github.com/cbmdev/refopt/internal/config"
	"github.com/cbmdev/refopt/internal/forecast"
	"github.com/cbmdev/refopt/internal/optimize"
	"github.com/cbmdev/refopt/internal/repository/postgres"
	"github.com/cbmdev/refopt/internal/service"
	"github.com/cbmdev/refopt/internal/storage"
	"github.com/cbmdev/refopt/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "batch",
		Usage: "Evaluate every eligible group and refresh the monitoring table",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Usage:    "Database connection string",
				Required: true,
				EnvVars:  []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Group selection policy: all or missing",
				Value: string(batch.PolicyAll),
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of groups evaluated concurrently",
				Value: 4,
			},
			&cli.BoolFlag{
				Name:  "export",
				Usage: "Upload a CSV of the run's monitoring rows",
			},
		},
		Action: runBatch,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runBatch(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	policy := batch.Policy(c.String("policy"))
	if policy != batch.PolicyAll && policy != batch.PolicyMissing {
		return fmt.Errorf("unknown policy %q", policy)
	}

	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return err
	}
	defer db.Close()

	productRepo := postgres.NewProductRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)

	resultCache, err := cache.NewOptimizationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, running without it")
		resultCache = cache.NewNoopOptimizationCache()
	}

	engine := forecast.NewEngine(forecast.Options{
		MaxSeriesMonths:   cfg.Optimizer.MaxSeriesMonths,
		StableCVThreshold: cfg.Optimizer.StableCVThreshold,
		TotalDampingRatio: cfg.Optimizer.TotalDampingRatio,
	})
	evaluator := optimize.NewEvaluator(optimize.Config{
		MinGroupMembers: cfg.Optimizer.MinGroupMembers,
		KeepCount:       cfg.Optimizer.KeepCount,
		KeepStrategy:    cfg.Optimizer.KeepStrategy,
		ForecastHorizon: cfg.Optimizer.ForecastHorizon,
		HistoryMonths:   cfg.Optimizer.HistoryMonths,
		SeriesMonths:    cfg.Optimizer.MaxSeriesMonths,
	}, engine, forecast.NewValidator())

	svc := service.NewOptimizationService(productRepo, resultCache, evaluator)
	runner := batch.NewRunner(svc, analyticsRepo, c.Int("workers"))

	if c.Bool("export") {
		if !cfg.Export.Enabled {
			return fmt.Errorf("export requested but EXPORT_ENABLED is off")
		}
		store, err := storage.NewMinioClient(cfg.Export)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(c.Context); err != nil {
			return err
		}
		runner = runner.WithExporter(batch.NewExporter(store))
	}

	report, err := runner.Run(c.Context, policy)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int("groups", report.GroupsTotal).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Float64("avg_quality_score", report.AvgQualityScore).
		Msg("batch finished")
	return nil
}
