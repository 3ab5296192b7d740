package app

import (
	"os"
	"path/filepath"
	"runtime"
)

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Addr       string
	DBPath     string
	MediaDir   string
	PixabayKey string
}

// ClientConfig defines the parameters the TUI client needs.
type ClientConfig struct {
	ServerURL string
	Username  string
	RoomID    string
}

// DefaultDBPath returns a per-user data path for the bundled SQLite file.
func DefaultDBPath() string {
	if env := os.Getenv("MEURS_DB_PATH"); env != "" {
		return env
	}
	if env := os.Getenv("MEURS_DATA_DIR"); env != "" {
		return filepath.Join(env, "meurs.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "meurs", "meurs.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Meurs", "meurs.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Meurs", "meurs.db")
		}
		return filepath.Join(home, ".local", "share", "meurs", "meurs.db")
	}
	return filepath.Join(".", ".meurs", "meurs.db")
}

// DefaultMediaDir returns the local library root; it defaults to ./media
// next to the working directory like the original deployment layout.
func DefaultMediaDir() string {
	if env := os.Getenv("MEURS_MEDIA_DIR"); env != "" {
		return env
	}
	return "media"
}
