package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbmdev/refopt/internal/api"
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
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
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

	optimizationService := service.NewOptimizationService(productRepo, resultCache, evaluator)

	runner := batch.NewRunner(optimizationService, analyticsRepo, 0)
	if cfg.Export.Enabled {
		store, err := storage.NewMinioClient(cfg.Export)
		if err == nil {
			err = store.EnsureBucket(context.Background())
		}
		if err != nil {
			logger.Log.Warn().Err(err).Msg("export storage unavailable, batch runs without export")
		} else {
			runner = runner.WithExporter(batch.NewExporter(store))
		}
	}

	router := api.NewRouter(&api.Services{
		OptimizationService: optimizationService,
		BatchRunner:         runner,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exited")
}
