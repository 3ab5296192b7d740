package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meurs/internal/storage"
)

func newHTTPTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewServer(store, t.TempDir(), "")
}

func jsonRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestSignupLoginLogout(t *testing.T) {
	server := newHTTPTestServer(t)

	rec := httptest.NewRecorder()
	server.HandleSignup(rec, jsonRequest(http.MethodPost, "/signup", `{"username":"alice","password":"secret"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.HandleSignup(rec, jsonRequest(http.MethodPost, "/signup", `{"username":"alice","password":"other"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleLogin(rec, jsonRequest(http.MethodPost, "/login", `{"username":"alice","password":"wrong"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleLogin(rec, jsonRequest(http.MethodPost, "/login", `{"username":"alice","password":"secret"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var login loginResponse
	decodeBody(t, rec, &login)
	if login.Token == "" || login.Username != "alice" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	logout := jsonRequest(http.MethodPost, "/logout", "")
	logout.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	server.HandleLogout(rec, logout)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	// the session is gone, a second logout is unauthorized
	logout = jsonRequest(http.MethodPost, "/logout", "")
	logout.Header.Set("Authorization", "Bearer "+login.Token)
	rec = httptest.NewRecorder()
	server.HandleLogout(rec, logout)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("stale logout: expected 401, got %d", rec.Code)
	}
}

func TestRoomLifecycleEndpoints(t *testing.T) {
	server := newHTTPTestServer(t)

	rec := httptest.NewRecorder()
	server.HandleCreateRoom(rec, jsonRequest(http.MethodPost, "/comuni/rooms", ""))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("create without username: expected 422, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleCreateRoom(rec, jsonRequest(http.MethodPost, "/comuni/rooms?username=alice", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var created roomCreatedResponse
	decodeBody(t, rec, &created)
	if len(created.RoomID) != roomIDLength || created.Owner != "alice" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	roomPath := "/comuni/rooms/" + created.RoomID

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodPost, roomPath+"/join", `{"username":"bob"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var joined roomJoinResponse
	decodeBody(t, rec, &joined)
	if !joined.OK || joined.IsOwner {
		t.Fatalf("bob must join as non-owner: %+v", joined)
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodPost, roomPath+"/join", `{"username":"alice"}`))
	decodeBody(t, rec, &joined)
	if !joined.IsOwner {
		t.Fatalf("alice must join as owner: %+v", joined)
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodGet, roomPath, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", rec.Code)
	}
	var info roomInfoResponse
	decodeBody(t, rec, &info)
	if info.RoomID != created.RoomID || info.Owner != "alice" {
		t.Fatalf("unexpected info: %+v", info)
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodDelete, roomPath, `{"username":"bob"}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("close by non-owner: expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodDelete, roomPath, `{"username":"alice"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("close by owner: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodPost, roomPath+"/join", `{"username":"bob"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("join after close: expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleRoomPath(rec, jsonRequest(http.MethodDelete, roomPath, `{"username":"alice"}`))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double close: expected 404, got %d", rec.Code)
	}
}

func TestCreateRoomIDExhaustion(t *testing.T) {
	server := newHTTPTestServer(t)
	server.Registry().newID = func() (string, error) { return "fixedid", nil }

	rec := httptest.NewRecorder()
	server.HandleCreateRoom(rec, jsonRequest(http.MethodPost, "/comuni/rooms?username=alice", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("first create: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleCreateRoom(rec, jsonRequest(http.MethodPost, "/comuni/rooms?username=bob", ""))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("exhausted create: expected 500, got %d", rec.Code)
	}
}

func TestProxyRejectsDisallowedHost(t *testing.T) {
	server := newHTTPTestServer(t)

	rec := httptest.NewRecorder()
	server.HandleProxy(rec, httptest.NewRequest(http.MethodGet, "/proxy", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing u: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandleProxy(rec, httptest.NewRequest(http.MethodGet, "/proxy?u=http%3A%2F%2Fevil.example%2Ffile.mp3", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("disallowed host: expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "host not allowed") {
		t.Fatalf("expected the allowlist rejection, got %s", rec.Body.String())
	}
}

func TestPlaylistEndpoints(t *testing.T) {
	server := newHTTPTestServer(t)

	rec := httptest.NewRecorder()
	server.HandleSignup(rec, jsonRequest(http.MethodPost, "/signup", `{"username":"alice","password":"secret"}`))
	rec = httptest.NewRecorder()
	server.HandleLogin(rec, jsonRequest(http.MethodPost, "/login", `{"username":"alice","password":"secret"}`))
	var login loginResponse
	decodeBody(t, rec, &login)

	authed := func(method, target, body string) *http.Request {
		req := jsonRequest(method, target, body)
		req.Header.Set("Authorization", "Bearer "+login.Token)
		return req
	}

	rec = httptest.NewRecorder()
	server.HandlePlaylists(rec, jsonRequest(http.MethodGet, "/playlists", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandlePlaylists(rec, authed(http.MethodPost, "/playlists", `{"name":"mix","media_type":"podcast"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad media_type: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandlePlaylists(rec, authed(http.MethodPost, "/playlists", `{"name":"rainy mixes","media_type":"music"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var playlist playlistDTO
	decodeBody(t, rec, &playlist)

	rec = httptest.NewRecorder()
	server.HandlePlaylists(rec, authed(http.MethodGet, "/playlists", ""))
	var listing map[string][]playlistDTO
	decodeBody(t, rec, &listing)
	if len(listing["playlists"]) != 1 || listing["playlists"][0].Name != "rainy mixes" {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	deletePath := fmt.Sprintf("/playlists/%d", playlist.ID)
	rec = httptest.NewRecorder()
	server.HandlePlaylistDelete(rec, authed(http.MethodDelete, deletePath, ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.HandlePlaylistDelete(rec, authed(http.MethodDelete, deletePath, ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete: expected 404, got %d", rec.Code)
	}
}
