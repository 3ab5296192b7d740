package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	intrnl "meurs/internal"
	"meurs/internal/storage"
)

// ServerHandle represents a running HTTP/WebSocket server instance.
type ServerHandle struct {
	addr   string
	server *http.Server
	store  *storage.Store
	done   chan struct{}
	err    error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer wires handlers, opens the SQLite store, runs migrations, prepares
// the media library, and starts serving in the background. Call Stop/Wait to
// manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig) (*ServerHandle, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = DefaultMediaDir()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	server := intrnl.NewServer(store, cfg.MediaDir, cfg.PixabayKey)
	if err := server.Library().Init(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("prepare media dir: %w", err)
	}

	mux := http.NewServeMux()
	registerHandlers(mux, server)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		store:  store,
		done:   make(chan struct{}),
	}

	go func() {
		if ctx == nil {
			return
		}
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server shutdown error: %v", err)
		}
	}()
	if ctx != nil {
		go server.SweepSessions(ctx)
	}

	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err := h.store.Close(); err != nil {
		log.Printf("store close error: %v", err)
	}
	h.err = err
}

func registerHandlers(mux *http.ServeMux, server *intrnl.Server) {
	// auth + account
	mux.HandleFunc("/signup", server.HandleSignup)
	mux.HandleFunc("/login", server.HandleLogin)
	mux.HandleFunc("/logout", server.HandleLogout)
	mux.HandleFunc("/password/change", server.HandlePasswordChange)
	mux.HandleFunc("/playlists", server.HandlePlaylists)
	mux.HandleFunc("/playlists/", server.HandlePlaylistDelete)

	// local library + external catalogs
	mux.HandleFunc("/music", server.HandleMusicList)
	mux.HandleFunc("/videos", server.HandleVideoList)
	mux.HandleFunc("/static/", server.HandleStatic)
	mux.HandleFunc("/external/music/audius", server.HandleAudiusSearch)
	mux.HandleFunc("/external/videos/pixabay", server.HandlePixabaySearch)

	// range streaming proxy
	mux.HandleFunc("/proxy", server.HandleProxy)
	mux.HandleFunc("/proxy/audius/stream", server.HandleAudiusStream)

	// rooms
	mux.HandleFunc("/comuni/rooms", server.HandleCreateRoom)
	mux.HandleFunc("/comuni/rooms/", server.HandleRoomPath)
	mux.HandleFunc("/ws/comuni/", server.ServeWS)

	mux.Handle("/metrics", server.MetricsHandler())
}
