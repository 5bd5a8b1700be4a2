// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// Open opens a database/sql handle for goose using the lib/pq driver.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func setup(logger *slog.Logger) error {
	goose.SetBaseFS(files)
	if logger != nil {
		goose.SetLogger(&slogAdapter{logger: logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	return goose.SetDialect("postgres")
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := setup(logger); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Reset rolls back every migration and applies them again. Tests only.
func Reset(ctx context.Context, db *sql.DB) error {
	if err := setup(nil); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	if err := goose.ResetContext(ctx, db, "."); err != nil {
		return fmt.Errorf("reset migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func Status(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := setup(logger); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return goose.StatusContext(ctx, db, ".")
}

// slogAdapter routes goose's printf logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Fatalf(format string, v ...any) {
	a.logger.Error(fmt.Sprintf(format, v...))
}

func (a *slogAdapter) Printf(format string, v ...any) {
	a.logger.Info(fmt.Sprintf(format, v...))
}
