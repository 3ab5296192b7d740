package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"meurs/internal/app"
)

func main() {
	_ = godotenv.Load()

	defaultServer := envOrDefault("MEURS_SERVER", "http://localhost:8080")
	defaultUser := envOrDefault("MEURS_USER", "")

	serverURL := flag.String("server", defaultServer, "server base URL (e.g., http://localhost:8080)")
	username := flag.String("user", defaultUser, "display name used in rooms")
	flag.Parse()

	args := flag.Args()
	var roomID string
	if len(args) >= 1 {
		roomID = args[0]
	}

	cfg := app.ClientConfig{
		ServerURL: *serverURL,
		RoomID:    roomID,
		Username:  *username,
	}

	if err := app.RunClient(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
