package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every pending migration against databaseURL.
func Up(ctx context.Context, databaseURL string, log zerolog.Logger) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	goose.SetLogger(&logger{log: log})
	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "sql"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Status prints the applied state of every migration through the logger.
func Status(ctx context.Context, databaseURL string, log zerolog.Logger) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetLogger(&logger{log: log})
	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, "sql")
}

// logger adapts zerolog to goose.Logger.
type logger struct {
	log zerolog.Logger
}

func (l *logger) Printf(format string, v ...interface{}) { l.log.Info().Msgf(format, v...) }
func (l *logger) Fatalf(format string, v ...interface{}) { l.log.Fatal().Msgf(format, v...) }
