package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"meurs/internal/media"
	"meurs/internal/proxy"
	"meurs/internal/storage"
)

const (
	defaultTokenTTL  = 24 * time.Hour
	authRateLimit    = 10
	authRateWindow   = time.Minute
	sessionSweepIdle = time.Hour
)

var errUnauthorized = errors.New("unauthorized")

// Server bundles the backend's shared state: the SQLite store for accounts,
// the in-memory room registry, the media proxy, and the catalog clients.
type Server struct {
	store       *storage.Store
	registry    *Registry
	library     *Library
	mediaProxy  *proxy.Proxy
	audius      *media.AudiusClient
	pixabay     *media.PixabayClient
	metrics     *Metrics
	presence    *PresenceTracker
	authLimiter *RateLimiter
	tokenTTL    time.Duration
}

// NewServer wires the server with its default collaborators. mediaDir is the
// root of the local music/videos library; pixabayKey may be empty, which
// disables Pixabay search.
func NewServer(store *storage.Store, mediaDir, pixabayKey string) *Server {
	return &Server{
		store:       store,
		registry:    NewRegistry(),
		library:     NewLibrary(mediaDir),
		mediaProxy:  proxy.New(proxy.DefaultAllowlist()),
		audius:      media.NewAudiusClient(),
		pixabay:     media.NewPixabayClient(pixabayKey),
		metrics:     NewMetrics(),
		presence:    NewPresenceTracker(),
		authLimiter: NewRateLimiter(authRateLimit, authRateWindow),
		tokenTTL:    defaultTokenTTL,
	}
}

// Registry exposes the room registry for wiring and tests.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Library exposes the local media library so startup can create its folders.
func (s *Server) Library() *Library {
	return s.library
}

type authContext struct {
	UserID   int64
	Username string
	Token    string
}

// authenticateRequest resolves the bearer token into a live session, pruning
// it when expired.
func (s *Server) authenticateRequest(r *http.Request) (*authContext, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, errUnauthorized
	}
	session, err := s.store.GetSession(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errUnauthorized
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.store.DeleteSession(r.Context(), token)
		return nil, errUnauthorized
	}
	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errUnauthorized
	}
	return &authContext{UserID: user.ID, Username: user.Username, Token: token}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SweepSessions periodically prunes expired login sessions until the context
// is done.
func (s *Server) SweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.store.DeleteExpiredSessions(ctx, time.Now())
		}
	}
}

// MetricsHandler reports counters plus live gauges from the registry and
// presence tracker.
func (s *Server) MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"signups_total":        s.metrics.signups.Load(),
			"logins_total":         s.metrics.logins.Load(),
			"rooms_created_total":  s.metrics.roomsCreated.Load(),
			"proxy_requests_total": s.metrics.proxyReqs.Load(),
			"proxy_bytes_total":    s.metrics.proxyBytes.Load(),
			"active_connections":   s.metrics.activeConns.Load(),
			"live_rooms":           s.registry.Count(),
			"active_users":         s.presence.ActiveCount(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})
}
