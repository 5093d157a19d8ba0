package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetbook/internal/api"
	"fleetbook/internal/auth"
	"fleetbook/internal/config"
	"fleetbook/internal/database"
	"fleetbook/internal/domain"
	"fleetbook/internal/events"
	"fleetbook/internal/export"
	"fleetbook/internal/logging"
	"fleetbook/internal/metrics"
	"fleetbook/internal/models"
	"fleetbook/internal/repository"
	"fleetbook/internal/service"
	"fleetbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	directory, err := loadPrincipals(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	cache, redisClose := initCache(cfg, &logger)
	if redisClose != nil {
		defer redisClose()
	}

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	catalog := service.NewCatalogService(db, cache, &logger)
	bookings := service.NewBookingService(db, eventBus, &logger)
	exporter := export.NewExporter(cfg.Exports.Path, &logger)

	httpServer := api.NewHTTPServer(cfg.API, directory, catalog, bookings, exporter, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)
	startSweeper(ctx, cfg, db, eventBus, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadPrincipals reads the API key directory from the principals file.
func loadPrincipals(cfg *config.Config, logger *zerolog.Logger) (*auth.Directory, error) {
	data, err := os.ReadFile(cfg.API.Auth.PrincipalsPath)
	if err != nil {
		logger.Error().Err(err).Str("principals_path", cfg.API.Auth.PrincipalsPath).Msg("read principals")
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var principalsConfig struct {
		Principals []models.Principal `yaml:"principals"`
	}
	if err := yaml.Unmarshal(expanded, &principalsConfig); err != nil {
		logger.Error().Err(err).Str("principals_path", cfg.API.Auth.PrincipalsPath).Msg("parse principals")
		return nil, err
	}

	directory, err := auth.NewDirectory(principalsConfig.Principals)
	if err != nil {
		logger.Error().Err(err).Msg("build principal directory")
		return nil, err
	}

	logger.Info().Int("principals", directory.Len()).Msg("principal directory loaded")
	return directory, nil
}

// initCache wires the vehicle cache: redis primary with in-memory failover
// when redis is configured and reachable, plain in-memory otherwise.
func initCache(cfg *config.Config, logger *zerolog.Logger) (domain.VehicleCache, func()) {
	ttl := time.Duration(models.VehicleCacheTTL) * time.Second
	memory := repository.NewMemoryVehicleCache(ttl)

	if cfg.Redis.Address == "" {
		return memory, nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory cache")
		_ = client.Close()
		return memory, nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	primary := repository.NewRedisVehicleCache(client, ttl)
	failover := repository.NewFailoverVehicleCache(primary, memory, logger)
	return failover, func() { _ = client.Close() }
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	logEvent := func(event *events.Event) error {
		logger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("booking event")
		return nil
	}

	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		metrics.IncBookingCreated()
		return logEvent(event)
	})
	bus.Subscribe(events.EventBookingConfirmed, func(event *events.Event) error {
		metrics.IncBookingTransition(models.StatusConfirmed)
		return logEvent(event)
	})
	bus.Subscribe(events.EventBookingRejected, func(event *events.Event) error {
		metrics.IncBookingTransition(models.StatusRejected)
		return logEvent(event)
	})
	bus.Subscribe(events.EventBookingCancelled, func(event *events.Event) error {
		metrics.IncBookingTransition(models.StatusCancelled)
		return logEvent(event)
	})
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

// startSweeper запускает фоновую чистку просроченных PENDING-заявок.
func startSweeper(ctx context.Context, cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	interval := time.Duration(cfg.Workers.SweepIntervalMinutes) * time.Minute
	retry := worker.RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
	sweeperLogger := logger.With().Str("component", "sweeper").Logger()
	sweeper := worker.NewSweeper(db, bus, interval, retry, &sweeperLogger)
	go sweeper.Start(ctx)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
