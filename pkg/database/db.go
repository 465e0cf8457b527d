package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 4
	defaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// NewDB connects to Postgres and applies pending migrations. A bunDebug of 1
// logs failed queries, 2 logs every query.
func NewDB(ctx context.Context, dsn string, bunDebug int) (*bun.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	slog.InfoContext(ctx, "connecting to postgres", "url", redact(dsn))

	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqlDB.SetMaxOpenConns(defaultMaxOpenConns)
	sqlDB.SetMaxIdleConns(defaultMaxIdleConns)
	sqlDB.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	bunDB := bun.NewDB(sqlDB, pgdialect.New())
	if bunDebug > 0 {
		bunDB.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithEnabled(true),
			bundebug.WithVerbose(bunDebug > 1),
		))
	}

	return bunDB, nil
}

func runMigrations(db *sql.DB) error {
	source := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(db, "postgres", source, migrate.Up)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("applied migrations", "count", n)
	}
	return nil
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
