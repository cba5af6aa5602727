package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sewamonitor/internal/api"
	"sewamonitor/internal/config"
	"sewamonitor/internal/database"
	"sewamonitor/internal/domain"
	"sewamonitor/internal/events"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/metrics"
	"sewamonitor/internal/monitor"
	"sewamonitor/internal/notify"
	"sewamonitor/internal/repository"
	"sewamonitor/internal/source"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(base, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	upstream, closeUpstream, err := initSource(cfg, base)
	if err != nil {
		return err
	}
	defer closeUpstream()

	store := initSnapshotStore(cfg, redisClient, base)
	src := source.NewCachedSource(upstream, store, base)

	bus, recent := initNotifications(cfg)
	dispatcher := notify.NewDispatcher(bus, cfg.Notify.QueueSize, prometheus.DefaultRegisterer, base)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		dispatcher.Start(dispatchCtx)
		close(dispatchDone)
	}()

	coordinator := monitor.New(src, dispatcher, cfg.Monitor, base,
		monitor.WithMetrics(monitor.NewMetrics(prometheus.DefaultRegisterer)))
	if err := coordinator.Start(ctx); err != nil {
		stopDispatch()
		return fmt.Errorf("start monitor: %w", err)
	}

	startMetrics(ctx, cfg, logger)

	err = startServers(ctx, cfg, coordinator, recent, base)

	coordinator.Stop()
	// The coordinator no longer raises alerts; flush what is queued.
	stopDispatch()
	<-dispatchDone

	logger.Info().Msg("sewamonitor stopped")
	return err
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initSource(cfg *config.Config, logger *zerolog.Logger) (domain.SnapshotSource, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceSQLite:
		db, err := database.NewDB(cfg.Source.DatabasePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return source.NewHTTPSource(cfg.Source), func() {}, nil
	}
}

func initSnapshotStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SnapshotStore {
	memory := repository.NewMemorySnapshotStore(cfg.Redis.SnapshotTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisSnapshotStore(redisClient, cfg.Redis.SnapshotKey, cfg.Redis.SnapshotTTL)
	return repository.NewFailoverSnapshotStore(primary, memory, logger)
}

func initNotifications(cfg *config.Config) (*events.EventBus, *notify.RecentAlerts) {
	bus := events.NewEventBus()
	recent := notify.NewRecentAlerts(cfg.Notify.RecentAlerts)

	bus.Subscribe(events.EventRentalExpiring, notify.ToastHandler(notify.Output(cfg.Notify.ToastOutput)))
	if cfg.Notify.Bell {
		bus.Subscribe(events.EventRentalExpiring, notify.BellHandler(notify.Output(cfg.Notify.ToastOutput)))
	}
	bus.Subscribe(events.EventRentalExpiring, recent.Handler())
	return bus, recent
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	coordinator *monitor.Coordinator,
	recent *notify.RecentAlerts,
	logger *zerolog.Logger,
) error {
	if !cfg.API.Enabled {
		<-ctx.Done()
		return nil
	}

	httpServer := api.NewHTTPServer(cfg.API, cfg.Exports, coordinator, recent, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(cfg.API, coordinator, logger)
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return errors.Join(fmt.Errorf("create grpc server: %w", err), httpServer.Shutdown(shutdownCtx))
		}
		go grpcServer.WatchHealth(ctx)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	return httpServer.Shutdown(shutdownCtx)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
