package proxy

import "testing"

func TestAllowlistExact(t *testing.T) {
	list := NewAllowlist([]string{"cdn.pixabay.com", "archive.org"})
	if !list.Allowed("https://cdn.pixabay.com/video/clip.mp4") {
		t.Fatalf("expected exact host to be allowed")
	}
	if list.Allowed("https://pixabay.com/video/clip.mp4") {
		t.Fatalf("did not expect unlisted host to be allowed")
	}
}

func TestAllowlistWildcard(t *testing.T) {
	list := NewAllowlist([]string{"ia802*.us.archive.org", "audius-prod-*.audius.co"})
	cases := []struct {
		url  string
		want bool
	}{
		{"https://ia802304.us.archive.org/file.mp3", true},
		{"https://ia802.us.archive.org/file.mp3", true},
		{"https://ia903304.us.archive.org/file.mp3", false},
		{"https://audius-prod-12.audius.co/v1/tracks", true},
		{"https://audius-prod-12.audius.co.evil.com/v1/tracks", false},
	}
	for _, tc := range cases {
		if got := list.Allowed(tc.url); got != tc.want {
			t.Errorf("Allowed(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestAllowlistRejectsUnparseable(t *testing.T) {
	list := DefaultAllowlist()
	if list.Allowed("://not a url") {
		t.Fatalf("expected parse failure to be rejected")
	}
	if list.Allowed("/relative/path") {
		t.Fatalf("expected URL without host to be rejected")
	}
}
