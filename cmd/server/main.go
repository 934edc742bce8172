package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"nadlan/server/config"
	"nadlan/server/internal/aggregator"
	"nadlan/server/internal/api"
	"nadlan/server/internal/database"
	"nadlan/server/internal/filter"
	"nadlan/server/internal/metrics"
	"nadlan/server/internal/processor"
	"nadlan/server/internal/queue"
	"nadlan/server/internal/scheduler"
	"nadlan/server/internal/service"
	"nadlan/server/internal/sources"
	"nadlan/server/internal/stats"
	"nadlan/server/internal/store"
	"nadlan/server/internal/synth"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(logger, cfg)

	cities, err := config.LoadCityDirectory(cfg.CityTablePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load city table")
	}
	logger.WithField("cities", cities.Len()).Info("Loaded city directory")

	m := metrics.New()

	// Initialize cache store
	cacheStore, err := openStore(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize cache store")
	}
	defer cacheStore.Close()

	// Initialize sources
	sourceOpts := sources.Options{
		Timeout:  cfg.Sources.Timeout,
		PageSize: cfg.Sources.PageSize,
		Cities:   cities,
		Logger:   logger,
		Metrics:  m,
	}
	registryOpts := sourceOpts
	registryOpts.URL = cfg.Sources.RegistryURL
	openDataOpts := sourceOpts
	openDataOpts.URL = cfg.Sources.OpenDataURL
	bureauOpts := sourceOpts
	bureauOpts.URL = cfg.Sources.StatisticsURL

	fetchers := []aggregator.Fetcher{
		sources.NewRegistry(registryOpts),
		sources.NewOpenData(openDataOpts, cfg.Sources.OpenDataResourceID),
		sources.NewStatisticsBureau(bureauOpts),
	}

	synthesizer := synth.New(cities, synth.Config{
		TotalBudget: cfg.Synthesis.TotalBudget,
		MinPerCity:  cfg.Synthesis.MinPerCity,
	}, nil)

	agg := aggregator.New(fetchers, synthesizer, filter.NewEngine(cities), aggregator.Options{
		MinInterval: cfg.Aggregator.MinInterval,
		Seed:        cfg.Synthesis.Seed,
		Logger:      logger,
		Metrics:     m,
	})

	// Initialize background cache writes
	writeQueue := queue.NewWriteQueue(cfg.CacheWriter.QueueSize, logger)
	writer := processor.NewCacheWriter(cacheStore, writeQueue, cfg, logger)
	writer.Start()

	market := service.NewMarketService(agg, cities, stats.NewEngine(cfg.Statistics.PriceBuckets), service.Options{
		Store:    cacheStore,
		Queue:    writeQueue,
		CacheTTL: cfg.Store.CacheTTL,
		Metrics:  m,
		Logger:   logger,
	})

	// Stores with native expiry do not need purging
	var purger scheduler.Purger
	if p, ok := cacheStore.(scheduler.Purger); ok {
		purger = p
	}
	sched := scheduler.NewScheduler(purger, market, cfg, logger)
	sched.Start()

	if !strings.EqualFold(cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(market, cfg.Server.AllowedOrigins, m, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	sched.Stop()
	writer.Stop()
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.WithField("level", cfg.Log.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Log.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// openStore opens the cache backend selected by STORE_DRIVER
func openStore(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	switch strings.ToLower(cfg.Store.Driver) {
	case "sqlite":
		logger.Infof("Using database at: %s", cfg.Store.SQLitePath)
		db, err := database.NewDatabase(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, err
		}

		// Run database migrations
		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return db, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Store.RedisAddr,
			DB:   cfg.Store.RedisDB,
		})
		r := store.NewRedis(client, "nadlan:")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		logger.WithField("addr", cfg.Store.RedisAddr).Info("Using redis cache")
		return r, nil

	case "memory":
		logger.Info("Using in-memory cache")
		return store.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
