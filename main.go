package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pricing-optimizer/config"
	"pricing-optimizer/pipeline"
	"pricing-optimizer/scraper"
	"pricing-optimizer/server"
	"pricing-optimizer/services"
	"pricing-optimizer/storage"
	"pricing-optimizer/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := utils.NewLogger(cfg.Debug)
	defer logger.Sync()

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Fatalf("[main] postgres: %v", err)
	}
	defer store.Close()

	// Inflation: external API when configured, reference table otherwise,
	// with an optional redis cache in front.
	var inflation services.InflationProvider = services.StaticInflationProvider{}
	if cfg.InflationAPIURL != "" {
		inflation = services.NewHTTPInflationProvider(cfg.InflationAPIURL, 10*time.Second)
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		inflation = services.NewCachedInflationProvider(inflation, rdb, logger)
		defer rdb.Close()
	}

	// Page rendering: hosted render API when a key is present, local
	// headless Chrome otherwise.
	fetchTimeout := time.Duration(cfg.FetchTimeoutMs) * time.Millisecond
	var fetcher scraper.RenderedFetcher
	if cfg.RenderAPIKey != "" {
		fetcher = scraper.NewRenderAPIFetcher(cfg.RenderAPIURL, cfg.RenderAPIKey, fetchTimeout, logger)
		logger.Infof("[main] using render API at %s", cfg.RenderAPIURL)
	} else {
		fetcher = scraper.NewChromeFetcher(cfg.ChromeBin, fetchTimeout, logger)
		logger.Infof("[main] using local headless chrome")
	}

	matcher := services.NewMatcher(cfg.Pricing.MatchThreshold)
	adapter, err := scraper.NewAdapter(fetcher, matcher, cfg, logger)
	if err != nil {
		logger.Fatalf("[main] scraper: %v", err)
	}

	retry := &utils.RetryConfig{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  time.Duration(cfg.RetryBackoffSec) * time.Second,
		Logger:     logger,
	}

	orchestrator := pipeline.New(
		store,
		adapter,
		inflation,
		services.NewAggregator(cfg.Pricing, logger),
		services.NewValidator(cfg.Pricing, logger),
		services.NewZoneVelocityEngine(cfg.Pricing, logger),
		retry,
		logger,
	)

	srv := server.New(store, orchestrator, logger)

	go func() {
		if err := srv.Listen(cfg.ServerPort); err != nil {
			logger.Fatalf("[main] server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("[main] shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Errorf("[main] shutdown: %v", err)
	}
}
