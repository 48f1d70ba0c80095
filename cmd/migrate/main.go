package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"textvision/internal/infra"
	"textvision/internal/migrations"
)

func main() {
	var statusOnly bool
	flag.BoolVar(&statusOnly, "status", false, "print migration status instead of applying")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	logger := infra.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL")).With().Str("cmd", "migrate").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	run := migrations.Up
	if statusOnly {
		run = migrations.Status
	}
	if err := run(ctx, dbURL, logger); err != nil {
		logger.Error().Err(err).Msg("migration failed")
		os.Exit(1)
	}
}
