package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"textvision/internal/infra"
	"textvision/internal/infra/credentials"
)

func main() {
	var (
		keyFlag        string
		imageModelFlag string
		videoModelFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "Volcano Engine Ark API key (fallbacks to ARK_API_KEY)")
	flag.StringVar(&imageModelFlag, "image-model", "", "Optional image model recorded with the key")
	flag.StringVar(&videoModelFlag, "video-model", "", "Optional video model recorded with the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "ARK API key is required via -key or environment")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", "").With().Str("cmd", "arkkey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	models := map[string]any{}
	if m := strings.TrimSpace(imageModelFlag); m != "" {
		models["image_model"] = m
	}
	if m := strings.TrimSpace(videoModelFlag); m != "" {
		models["video_model"] = m
	}

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetArkAPIKey(ctxExec, key, models); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist ark api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ARK API key stored successfully")
}
