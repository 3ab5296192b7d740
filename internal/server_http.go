package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"meurs/internal/proxy"
	"meurs/internal/storage"
)

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type passwordChangeRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

type usernameRequest struct {
	Username string `json:"username"`
}

type roomCreatedResponse struct {
	RoomID string `json:"room_id"`
	Owner  string `json:"owner"`
}

type roomJoinResponse struct {
	OK      bool `json:"ok"`
	IsOwner bool `json:"is_owner"`
}

type roomInfoResponse struct {
	RoomID  string   `json:"room_id"`
	Owner   string   `json:"owner"`
	Clients []string `json:"clients"`
}

type catalogItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
	StreamURL string `json:"stream_url"`
	Source    string `json:"source"`
	License   string `json:"license"`
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
	Next  string        `json:"next,omitempty"`
}

type playlistRequest struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
}

type playlistDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
}

// ---- Auth

func (s *Server) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.authLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, err := s.store.CreateUser(r.Context(), username, hash); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			writeError(w, http.StatusConflict, errors.New("username already taken"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncSignup()
	writeJSON(w, http.StatusCreated, map[string]string{"username": username})
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.authLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.store.CreateSession(r.Context(), user.ID, token, expiresAt); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncLogin()
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: user.Username, ExpiresAt: expiresAt})
}

func (s *Server) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := s.store.DeleteSession(r.Context(), authCtx.Token); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.New) == "" || strings.TrimSpace(req.Current) == "" {
		writeError(w, http.StatusBadRequest, errors.New("both current and new passwords required"))
		return
	}
	user, err := s.store.GetUserByID(r.Context(), authCtx.UserID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Current)) != nil {
		writeError(w, http.StatusUnauthorized, errors.New("current password incorrect"))
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), authCtx.UserID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Playlists

func (s *Server) HandlePlaylists(w http.ResponseWriter, r *http.Request) {
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		playlists, err := s.store.ListPlaylists(r.Context(), authCtx.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out := make([]playlistDTO, 0, len(playlists))
		for _, p := range playlists {
			out = append(out, playlistDTO{ID: p.ID, Name: p.Name, MediaType: p.MediaType})
		}
		writeJSON(w, http.StatusOK, map[string][]playlistDTO{"playlists": out})
	case http.MethodPost:
		var req playlistRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" || (req.MediaType != "music" && req.MediaType != "video") {
			writeError(w, http.StatusBadRequest, errors.New("name and media_type (music or video) are required"))
			return
		}
		id, err := s.store.CreatePlaylist(r.Context(), authCtx.UserID, name, req.MediaType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, playlistDTO{ID: id, Name: name, MediaType: req.MediaType})
	default:
		methodNotAllowed(w, http.MethodGet)
	}
}

func (s *Server) HandlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	authCtx, err := s.authenticateRequest(r)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/playlists/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("playlist id must be numeric"))
		return
	}
	deleted, err := s.store.DeletePlaylist(r.Context(), authCtx.UserID, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Local media library

func (s *Server) HandleMusicList(w http.ResponseWriter, r *http.Request) {
	names, err := s.library.List("music")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"music": names})
}

func (s *Server) HandleVideoList(w http.ResponseWriter, r *http.Request) {
	names, err := s.library.List("videos")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"videos": names})
}

func (s *Server) HandleStatic(w http.ResponseWriter, r *http.Request) {
	s.library.ServeFile(w, r, strings.TrimPrefix(r.URL.Path, "/static/"))
}

// ---- External catalogs

func (s *Server) HandleAudiusSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = "lofi"
	}
	limit := intQueryParam(r, "limit", 20)
	offset := intQueryParam(r, "cursor", 0)

	tracks, err := s.audius.SearchTracks(r.Context(), query, limit, offset)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	items := make([]catalogItem, 0, len(tracks))
	for _, track := range tracks {
		items = append(items, catalogItem{
			ID:        track.ID,
			Title:     track.Title,
			Artist:    track.Artist,
			Duration:  track.Duration,
			Thumb:     track.Thumb,
			StreamURL: "/proxy/audius/stream?id=" + track.ID,
			Source:    "audius",
			License:   "Audius terms",
		})
	}
	resp := catalogResponse{Items: items}
	if len(items) > 0 {
		resp.Next = strconv.Itoa(offset + len(items))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) HandlePixabaySearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		query = "nature"
	}
	page := intQueryParam(r, "page", 1)
	perPage := intQueryParam(r, "per_page", 10)

	videos, err := s.pixabay.SearchVideos(r.Context(), query, page, perPage)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	items := make([]catalogItem, 0, len(videos))
	for _, video := range videos {
		items = append(items, catalogItem{
			ID:        video.ID,
			Title:     video.Title,
			Thumb:     video.Thumb,
			StreamURL: "/proxy?u=" + url.QueryEscape(video.URL),
			Source:    "pixabay",
			License:   "Pixabay Content License",
		})
	}
	resp := catalogResponse{Items: items}
	if len(items) > 0 {
		resp.Next = strconv.Itoa(page + 1)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- Range proxy

func (s *Server) HandleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("u")
	if target == "" {
		writeError(w, http.StatusBadRequest, errors.New("u query param required"))
		return
	}
	// the allowlist gate runs before any upstream connection is attempted
	if !s.mediaProxy.Allowed(target) {
		writeError(w, http.StatusBadRequest, errors.New("host not allowed"))
		return
	}
	written := s.mediaProxy.ServeStream(w, r, target)
	s.metrics.AddProxied(written)
}

func (s *Server) HandleAudiusStream(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("id")
	if trackID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id query param required"))
		return
	}
	endpoint, err := s.audius.StreamEndpoint(r.Context(), trackID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	playable, err := s.mediaProxy.ResolveRedirect(r.Context(), endpoint)
	if err != nil {
		var statusErr *proxy.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, statusErr.Status, errors.New("audius stream unavailable"))
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	written := s.mediaProxy.ServeStream(w, r, playable)
	s.metrics.AddProxied(written)
}

// ---- Rooms

func (s *Server) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	username := usernameFromRequest(r)
	if username == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("username is required"))
		return
	}
	room, err := s.registry.Create(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.IncRoomCreated()
	writeJSON(w, http.StatusOK, roomCreatedResponse{RoomID: room.ID(), Owner: room.Owner()})
}

// HandleRoomPath dispatches /comuni/rooms/{id} and /comuni/rooms/{id}/join.
func (s *Server) HandleRoomPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/comuni/rooms/")
	if roomID, ok := strings.CutSuffix(rest, "/join"); ok {
		s.handleJoinRoom(w, r, roomID)
		return
	}
	if strings.Contains(rest, "/") {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleRoomInfo(w, r, rest)
	case http.MethodDelete:
		s.handleCloseRoom(w, r, rest)
	default:
		methodNotAllowed(w, http.MethodGet)
	}
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	username := usernameFromRequest(r)
	if username == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("username is required"))
		return
	}
	room := s.registry.Get(roomID)
	if room == nil {
		writeError(w, http.StatusNotFound, ErrRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, roomJoinResponse{OK: true, IsOwner: room.Owner() == username})
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, _ *http.Request, roomID string) {
	room := s.registry.Get(roomID)
	if room == nil {
		writeError(w, http.StatusNotFound, ErrRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, roomInfoResponse{
		RoomID:  room.ID(),
		Owner:   room.Owner(),
		Clients: room.MemberNames(),
	})
}

func (s *Server) handleCloseRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	username := usernameFromRequest(r)
	if username == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("username is required"))
		return
	}
	switch err := s.registry.Close(roomID, username); {
	case errors.Is(err, ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ErrNotOwner):
		writeError(w, http.StatusForbidden, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"closed": true})
	}
}

// usernameFromRequest accepts the name from a JSON body or the username
// query param, so both browser fetches and plain curl work.
func usernameFromRequest(r *http.Request) string {
	if r.Body != nil {
		var body usernameRequest
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&body); err == nil && strings.TrimSpace(body.Username) != "" {
			return strings.TrimSpace(body.Username)
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("username"))
}

// ---- helpers

func intQueryParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, errUnauthorized) {
		status = http.StatusUnauthorized
	}
	http.Error(w, http.StatusText(status), status)
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
