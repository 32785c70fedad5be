package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"futmap/internal/catalog"
	"futmap/internal/config"
	"futmap/internal/database"
	"futmap/internal/domain"
	"futmap/internal/export"
	"futmap/internal/ledger"
	"futmap/internal/logging"
	"futmap/internal/models"
	"futmap/internal/repository"
	"futmap/internal/seed"
	"futmap/internal/session"
	"futmap/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultDBPath = "data/futmap.db"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("futmap", flag.ContinueOnError)
	var (
		configPath = global.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
		dbPath     = global.String("db", "", "path to sqlite db (overrides config)")
	)
	global.Usage = func() { usage(global.Output()) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		usage(global.Output())
		return errors.New("no command given")
	}

	cfg, err := loadConfig(*configPath, *dbPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.dispatch(ctx, global.Arg(0), global.Args()[1:])
}

// loadConfig reads the config file when one is given or present at the
// default location; otherwise it falls back to defaults with SQLite state.
func loadConfig(path, dbPath string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = "configs/config.yaml"
	}

	var cfg *config.Config
	if _, err := os.Stat(path); err == nil || explicit {
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
		cfg.Logging.Level = "warn"
		cfg.Logging.Output = "stderr"
		cfg.Database.Path = defaultDBPath
		cfg.Session.Backend = "sqlite"
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDBPath
	}
	return cfg, nil
}

type app struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	out      io.Writer
	db       *database.DB
	redis    *redis.Client
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	session  *session.Store
	exporter *export.Exporter
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: out}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}
	a.db = db

	fields, err := seed.Fields(cfg.Catalog.SeedPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.catalog, err = catalog.Open(ctx, db, fields, catalog.WithLogger(logger)); err != nil {
		a.Close()
		return nil, err
	}

	a.ledger = ledger.New(db, a.catalog,
		ledger.WithLogger(logger),
		ledger.WithLocation(cfg.Location()),
		ledger.WithRestoreSlotOnCancel(cfg.Ledger.RestoreSlotOnCancel),
		ledger.WithDefaultStatus(models.BookingStatus(cfg.Ledger.DefaultStatus)),
		ledger.WithTimeout(cfg.StoreTimeout()),
	)
	if cfg.Catalog.SeedPath == "" {
		if err := a.ledger.Import(ctx, seed.DemoBookings()); err != nil {
			a.Close()
			return nil, err
		}
	}

	auth, err := session.NewDemoAuthenticator()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = session.New(a.sessionKV(ctx), auth,
		session.WithNamespace(cfg.Session.Namespace),
		session.WithLogger(logger),
		session.WithTimeout(cfg.StoreTimeout()),
		session.WithRetry(retryPolicy(cfg.Session.Retry)),
	)
	if err := a.session.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("session restore failed")
	}

	a.exporter = export.NewExporter(a.ledger, cfg.Exports.Path, logger)
	return a, nil
}

func (a *app) sessionKV(ctx context.Context) domain.KVStore {
	switch a.cfg.Session.Backend {
	case "memory":
		return repository.NewMemoryKV()
	case "redis":
		a.redis = repository.NewRedisClient(a.cfg.Redis)
		if err := repository.Ping(ctx, a.redis); err != nil {
			a.logger.Warn().Err(err).Msg("redis unavailable, session falls back to sqlite")
		}
		return repository.NewFailoverKV(repository.NewRedisKV(a.redis, 0), a.db.KV(), a.logger)
	default:
		return a.db.KV()
	}
}

func retryPolicy(cfg config.RetryConfig) worker.RetryPolicy {
	return worker.RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  msToDuration(cfg.InitialDelayMS),
		MaxDelay:      msToDuration(cfg.MaxDelayMS),
		BackoffFactor: cfg.BackoffFactor,
	}
}

func (a *app) Close() {
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.redis != nil {
		_ = repository.Close(a.redis)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
