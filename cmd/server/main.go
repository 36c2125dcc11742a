package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"underwriting/server/config"
	"underwriting/server/internal/api"
	"underwriting/server/internal/database"
	"underwriting/server/internal/disposition"
	"underwriting/server/internal/geocoding"
	"underwriting/server/internal/market"
	"underwriting/server/internal/processor"
	"underwriting/server/internal/queue"
	"underwriting/server/internal/report"
	"underwriting/server/internal/scheduler"
	"underwriting/server/internal/underwriting"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithError(err).Warn("Invalid log level, using info")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	defaults, err := config.LoadDefaultsTable(cfg.Underwriting.DefaultsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load property type defaults")
	}

	resolver := underwriting.NewResolver(defaults, decimal.NewFromFloat(cfg.Underwriting.NOIGrowthRate))
	calculator := underwriting.NewCalculator(resolver, underwriting.SettingsFromConfig(cfg.Underwriting))

	var provider market.Provider
	if cfg.Underwriting.MarketDataURL != "" {
		provider = market.NewHTTPProvider(logger, cfg.Underwriting.MarketDataURL)
	} else {
		logger.Info("No market data URL configured, reports use default assumptions")
	}
	cache := market.NewCache(logger, cfg.Underwriting.MarketCacheTTL, cfg.Underwriting.MarketCacheSnapshot)
	assembler := report.NewAssembler(calculator, provider, nil, cache, logger)

	dispositions := disposition.NewService(db, db, db, calculator,
		decimal.NewFromFloat(cfg.Underwriting.DispositionSellCostPercent))

	maintenance := scheduler.NewScheduler(logger,
		scheduler.Job{
			Name:  "market-cache-purge",
			Every: cfg.Underwriting.MaintenanceInterval,
			Run: func(context.Context) error {
				if removed := cache.Purge(); removed > 0 {
					logger.WithField("removed", removed).Info("Purged expired market contexts")
				}
				return nil
			},
		},
		scheduler.Job{
			Name:  "market-cache-snapshot",
			Every: cfg.Underwriting.MaintenanceInterval,
			Run:   func(context.Context) error { return cache.Save() },
		},
	)
	maintenance.Start()

	var geocoder *geocoding.Geocoder
	if cfg.Underwriting.GeocoderURL != "" {
		geocoder = geocoding.NewGeocoder(logger, cfg.Underwriting.GeocoderURL, cfg.Underwriting.GeocodeCacheDir)
	}

	actualsQueue := queue.NewActualsQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db.GetDB(), actualsQueue, cfg, logger)
	batchProcessor.Start()
	actualsQueue.Start()

	handler := api.NewHandler(api.Options{
		Store:        db,
		Calculator:   calculator,
		Assembler:    assembler,
		Dispositions: dispositions,
		Queue:        actualsQueue,
		Geocoder:     geocoder,
		MaxBatchSize: cfg.BatchProcessing.MaxBatchSize,
	}, logger)

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.SetupRoutes(router, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	maintenance.Stop()
	// deliver accepted batches before the processor stops
	actualsQueue.Close()
	batchProcessor.Stop()

	if cfg.Underwriting.MarketCacheSnapshot != "" {
		if err := cache.Save(); err != nil {
			logger.WithError(err).Error("Failed to save market cache snapshot")
		}
	}
	logger.Info("Server exited")
}
