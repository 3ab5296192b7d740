package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	intrnl "meurs/internal"
	"meurs/internal/app"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOrDefault("MEURS_ADDR", ":8080"), "server listen address")
	db := flag.String("db", envOrDefault("MEURS_DB_PATH", ""), "sqlite database path")
	mediaDir := flag.String("media", envOrDefault("MEURS_MEDIA_DIR", ""), "local media library root")
	pixabayKey := flag.String("pixabay-key", os.Getenv("PIXABAY_API_KEY"), "Pixabay API key (empty disables video search)")
	flag.Parse()

	cfg := app.ServerConfig{
		Addr:       *addr,
		DBPath:     *db,
		MediaDir:   *mediaDir,
		PixabayKey: *pixabayKey,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = app.DefaultDBPath()
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = app.DefaultMediaDir()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.RunServer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meurs-server: %v\n", err)
		os.Exit(1)
	}

	log.Printf("Meurs server v%s listening on %s (db %s, media %s)", intrnl.Version, handle.Addr(), cfg.DBPath, cfg.MediaDir)
	if err := handle.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "meurs-server: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
