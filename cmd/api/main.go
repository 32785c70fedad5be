package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"futmap/internal/api"
	"futmap/internal/catalog"
	"futmap/internal/config"
	"futmap/internal/database"
	"futmap/internal/domain"
	"futmap/internal/events"
	"futmap/internal/export"
	"futmap/internal/ledger"
	"futmap/internal/logging"
	"futmap/internal/metrics"
	"futmap/internal/models"
	"futmap/internal/notify"
	"futmap/internal/repository"
	"futmap/internal/seed"
	"futmap/internal/worker"

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
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}
	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fields, err := seed.Fields(cfg.Catalog.SeedPath)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", cfg.Catalog.SeedPath).Msg("load catalog seed")
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus(&logger)

	cat, err := initCatalog(ctx, db, fields, &logger)
	if err != nil {
		return err
	}

	led, err := initLedger(ctx, cfg, db, cat, eventBus, &logger)
	if err != nil {
		return err
	}

	startNotifications(ctx, cfg, redisClient, eventBus, &logger)

	if cfg.Backup.Enabled && db != nil {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	metrics.Register()
	startMetrics(ctx, cfg, &logger)

	exporter := export.NewExporter(led, cfg.Exports.Path, &logger)
	httpServer := api.NewHTTPServer(cfg.API, cat, led, exporter, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
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

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

// initDatabase returns nil when no database path is configured; the API
// then keeps everything in memory.
func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if cfg.Database.Path == "" {
		logger.Warn().Msg("database.path is empty, bookings are kept in memory")
		return nil, nil
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initCatalog(ctx context.Context, db *database.DB, fields []models.Field, logger *zerolog.Logger) (*catalog.Catalog, error) {
	if db == nil {
		return catalog.New(fields, catalog.WithLogger(logger))
	}

	cat, err := catalog.Open(ctx, db, fields, catalog.WithLogger(logger))
	if err != nil {
		logger.Error().Err(err).Msg("open catalog")
		return nil, err
	}
	return cat, nil
}

func initLedger(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	cat *catalog.Catalog,
	bus *events.EventBus,
	logger *zerolog.Logger,
) (*ledger.Ledger, error) {
	var store domain.BookingStore = ledger.NewMemoryStore()
	if db != nil {
		store = db
	}

	led := ledger.New(store, cat,
		ledger.WithLogger(logger),
		ledger.WithEvents(bus),
		ledger.WithLocation(cfg.Location()),
		ledger.WithRestoreSlotOnCancel(cfg.Ledger.RestoreSlotOnCancel),
		ledger.WithDefaultStatus(models.BookingStatus(cfg.Ledger.DefaultStatus)),
		ledger.WithTimeout(cfg.StoreTimeout()),
	)

	// Демо-бронирования нужны только для встроенного каталога.
	if cfg.Catalog.SeedPath == "" {
		if err := led.Import(ctx, seed.DemoBookings()); err != nil {
			logger.Error().Err(err).Msg("import demo bookings")
			return nil, err
		}
	}
	return led, nil
}

func startNotifications(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) {
	if cfg.Telegram.BotToken == "" {
		return
	}

	bot, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	notifyWorker := worker.NewNotifyWorker(notify.NewTelegramNotifier(bot, cfg.Telegram.ChatID), redisClient, retryPolicy, logger)
	go notifyWorker.Start(ctx)

	notify.Subscribe(bus, notifyWorker)
	logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("grpc_port", cfg.API.GRPC.Port).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
