package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAudiusSearchTracks(t *testing.T) {
	var provider *httptest.Server
	provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tracks/search" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("query"); got != "lofi" {
			t.Errorf("unexpected query param: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"t1","title":"Rainy Loop","duration":183,` +
			`"user":{"name":"beatsmith"},"artwork":{"150x150":"https://img/150.jpg"}}]}`))
	}))
	defer provider.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":["` + provider.URL + `"]}`))
	}))
	defer api.Close()

	client := NewAudiusClient()
	client.APIHost = api.URL

	tracks, err := client.SearchTracks(context.Background(), "lofi", 20, 0)
	if err != nil {
		t.Fatalf("SearchTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	track := tracks[0]
	if track.ID != "t1" || track.Artist != "beatsmith" || track.Duration != 183 {
		t.Fatalf("unexpected track: %+v", track)
	}
}

func TestAudiusStreamEndpoint(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["https://dp.example.com"]}`))
	}))
	defer api.Close()

	client := NewAudiusClient()
	client.APIHost = api.URL

	endpoint, err := client.StreamEndpoint(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("StreamEndpoint: %v", err)
	}
	if endpoint != "https://dp.example.com/v1/tracks/abc123/stream" {
		t.Fatalf("unexpected endpoint: %q", endpoint)
	}
}

func TestAudiusNoProviders(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer api.Close()

	client := NewAudiusClient()
	client.APIHost = api.URL

	if _, err := client.SearchTracks(context.Background(), "lofi", 10, 0); err == nil {
		t.Fatalf("expected error when no providers are advertised")
	}
}

func TestPixabaySearchVideos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("unexpected key: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[
			{"id":11,"tags":"nature, forest","previewURL":"https://img/p.jpg",
			 "videos":{"medium":{"url":"https://cdn/v-med.mp4"},"small":{"url":"https://cdn/v-small.mp4"}}},
			{"id":12,"tags":"no files","videos":{}}
		]}`))
	}))
	defer server.Close()

	client := NewPixabayClient("test-key")
	client.BaseURL = server.URL

	videos, err := client.SearchVideos(context.Background(), "nature", 1, 10)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected hit without files to be skipped, got %d videos", len(videos))
	}
	if videos[0].URL != "https://cdn/v-med.mp4" {
		t.Fatalf("expected medium rendition, got %q", videos[0].URL)
	}
}

func TestPixabayRequiresKey(t *testing.T) {
	client := NewPixabayClient("")
	if _, err := client.SearchVideos(context.Background(), "nature", 1, 10); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
