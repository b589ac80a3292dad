package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/should-i-shovel/internal/api/http"
	"github.com/i474232898/should-i-shovel/internal/config"
	"github.com/i474232898/should-i-shovel/internal/forecast"
	"github.com/i474232898/should-i-shovel/internal/forecast/providers"
	"github.com/i474232898/should-i-shovel/internal/geocode"
	"github.com/i474232898/should-i-shovel/internal/logging"
	"github.com/i474232898/should-i-shovel/internal/observability"
	"github.com/i474232898/should-i-shovel/internal/scheduler"
	"github.com/i474232898/should-i-shovel/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	reportStore, closeStore := newStore(ctx, cfg, logger)
	defer closeStore()

	// Providers with resilience (backoff + circuit breaker).
	var provs []forecast.Provider
	var fallbackGeocoder forecast.Geocoder

	if cfg.ForecastAPIURL != "" {
		shovelAPI := providers.NewShovelAPIProvider(httpClient, cfg.ForecastAPIURL)
		provs = append(provs, shovelAPI)
		fallbackGeocoder = shovelAPI
	}

	derive := providers.DeriveConfig{
		ThresholdMM: cfg.ShovelThresholdMM,
		WindowHours: cfg.ShovelWindowHours,
	}
	if cfg.OpenMeteoEnabled {
		provs = append(provs, providers.NewOpenMeteoProvider(httpClient, derive))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, derive))
	}

	names := make([]string, 0, len(provs))
	for _, p := range provs {
		names = append(names, p.Name())
	}
	logger.Infow("forecast providers configured", "providers", names)

	opts := []forecast.Option{
		forecast.WithForecastHours(cfg.ForecastHours),
		forecast.WithFreshness(cfg.ReportFreshness),
		forecast.WithLogger(logger.Named("forecast")),
		forecast.WithMetrics(metrics),
	}

	var geo forecast.Geocoder = fallbackGeocoder
	if cfg.GoogleGeocoderAPIKey != "" {
		geo = geocode.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey)
	}
	if geo != nil {
		cached, err := geocode.NewCachedGeocoder(geo, cfg.GeocodeCacheSize, metrics)
		if err != nil {
			logger.Fatalw("failed to create geocode cache", "error", err)
		}
		opts = append(opts, forecast.WithGeocoder(cached))
	}

	service := forecast.NewService(reportStore, provs, opts...)

	// Scheduler that keeps watched locations warm.
	metrics.WatchLocations.Set(float64(len(cfg.WatchLocations)))
	sched := scheduler.New(cfg.WatchLocations, cfg.RefreshInterval, service, logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		logger.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "should-i-shovel",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 20*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(fiberlogger.New(fiberlogger.Config{Output: logging.Writer(logger.Named("http"))}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "should-i-shovel",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service)

	go func() {
		logger.Infow("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorw("fiber server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorw("error during shutdown", "error", err)
	}
}

func newStore(ctx context.Context, cfg *config.AppConfig, logger *zap.SugaredLogger) (forecast.Store, func()) {
	if cfg.StoreBackend != config.StoreRedis {
		logger.Infow("using in-memory report store", "max_history", cfg.StoreMaxHistory, "max_age", cfg.StoreMaxAge)
		return store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	redisStore := store.NewRedisStore(client, cfg.StoreMaxHistory, cfg.StoreMaxAge)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		logger.Fatalw("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
	}
	logger.Infow("using redis report store", "addr", cfg.RedisAddr)

	return redisStore, func() {
		if err := client.Close(); err != nil {
			logger.Warnw("failed to close redis client", "error", err)
		}
	}
}
