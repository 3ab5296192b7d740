package storage

import (
	"context"
	"testing"
	"time"
)

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	id, err := store.CreateUser(ctx, "alice", []byte("hash"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected id > 0")
	}
	if _, err := store.CreateUser(ctx, "alice", []byte("hash2")); err == nil {
		t.Fatalf("expected duplicate error")
	}

	user, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	userID, err := store.CreateUser(ctx, "bob", []byte("hash"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	exp := time.Now().Add(time.Hour)
	if err := store.CreateSession(ctx, userID, "token123", exp); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	session, err := store.GetSession(ctx, "token123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if session == nil || session.UserID != userID {
		t.Fatalf("unexpected session: %+v", session)
	}
	if err := store.DeleteSession(ctx, "token123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	session, err = store.GetSession(ctx, "token123")
	if err != nil {
		t.Fatalf("GetSession after delete: %v", err)
	}
	if session != nil {
		t.Fatalf("expected nil session after delete")
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	userID, _ := store.CreateUser(ctx, "carol", []byte("hash"))
	if err := store.CreateSession(ctx, userID, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession stale: %v", err)
	}
	if err := store.CreateSession(ctx, userID, "fresh", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession fresh: %v", err)
	}
	if err := store.DeleteExpiredSessions(ctx, time.Now()); err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if stale, _ := store.GetSession(ctx, "stale"); stale != nil {
		t.Fatalf("expected stale session to be pruned")
	}
	if fresh, _ := store.GetSession(ctx, "fresh"); fresh == nil {
		t.Fatalf("expected fresh session to survive")
	}
}

func TestPlaylists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	aliceID, _ := store.CreateUser(ctx, "alice", []byte("hash1"))
	bobID, _ := store.CreateUser(ctx, "bob", []byte("hash2"))

	plID, err := store.CreatePlaylist(ctx, aliceID, "rainy mixes", "music")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if _, err := store.CreatePlaylist(ctx, aliceID, "clips", "video"); err != nil {
		t.Fatalf("CreatePlaylist video: %v", err)
	}
	if _, err := store.CreatePlaylist(ctx, aliceID, "bad", "podcast"); err == nil {
		t.Fatalf("expected media_type check to reject unknown type")
	}

	playlists, err := store.ListPlaylists(ctx, aliceID)
	if err != nil {
		t.Fatalf("ListPlaylists: %v", err)
	}
	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}

	// deleting someone else's playlist must not succeed
	deleted, err := store.DeletePlaylist(ctx, bobID, plID)
	if err != nil {
		t.Fatalf("DeletePlaylist as non-owner: %v", err)
	}
	if deleted {
		t.Fatalf("expected delete by non-owner to be a no-op")
	}
	deleted, err = store.DeletePlaylist(ctx, aliceID, plID)
	if err != nil || !deleted {
		t.Fatalf("expected owner delete to succeed, deleted=%v err=%v", deleted, err)
	}
}

func TestUpdatePassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	aliceID, _ := store.CreateUser(ctx, "alice", []byte("hash1"))
	if err := store.UpdatePassword(ctx, aliceID, []byte("hash2")); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	user, _ := store.GetUserByUsername(ctx, "alice")
	if string(user.PasswordHash) != "hash2" {
		t.Fatalf("expected updated hash, got %s", string(user.PasswordHash))
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
