package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/payimport/internal/config"
	"github.com/JonMunkholm/payimport/internal/importer"
	"github.com/JonMunkholm/payimport/internal/migrations"
	"github.com/JonMunkholm/payimport/internal/notify"
	"github.com/JonMunkholm/payimport/internal/seed"
	"github.com/JonMunkholm/payimport/internal/store/postgres"
	"github.com/JonMunkholm/payimport/internal/store/sqlite"
)

// appStore is what the commands need from a database.
type appStore interface {
	importer.Store
	seed.Target
	Ping(ctx context.Context) error
}

// openStore connects to the configured database. Postgres migrations run
// when migrate is set; SQLite databases are always migrated on open.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (appStore, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite database", "path", cfg.Database.Path)
		return s, func() { s.Close() }, nil

	case config.DriverPostgres:
		if migrate {
			if err := migrations.Postgres(cfg.Database.URL); err != nil {
				return nil, nil, err
			}
		}

		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
		return postgres.New(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// newPipeline wires the store and configured notifier into a pipeline.
func newPipeline(cfg *config.Config, store importer.Store) (*importer.Pipeline, error) {
	notifier, err := notify.New(notify.Config{
		Mode:          cfg.Notify.Mode,
		TemplatesPath: cfg.Notify.TemplatesPath,
		SMTP: notify.SMTPConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.SMTPUsername,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.SMTPFrom,
		},
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	return importer.New(store, notifier, cfg.Import.DefaultCurrency,
		importer.WithLogger(slog.Default()),
		importer.WithMaxFileSize(cfg.Import.MaxFileSize),
	), nil
}
