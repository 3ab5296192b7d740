package internal

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library exposes the server's local media directory: a music/ and a videos/
// folder whose files are listed over the API and served at /static/ (with
// native Range support from the file server).
type Library struct {
	baseDir string
}

func NewLibrary(baseDir string) *Library {
	return &Library{baseDir: baseDir}
}

// Init ensures the media folders exist so listings never fail on a fresh
// install.
func (l *Library) Init() error {
	for _, kind := range []string{"music", "videos"} {
		if err := os.MkdirAll(filepath.Join(l.baseDir, kind), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// List returns the file names (not directories) under one media folder,
// sorted for stable output.
func (l *Library) List(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.baseDir, sanitizePathComponent(kind)))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ServeFile streams one local media file. http.ServeFile handles Range
// requests, so local playback seeks work the same way proxied playback does.
func (l *Library) ServeFile(w http.ResponseWriter, r *http.Request, relPath string) {
	clean := filepath.Clean("/" + relPath)
	full := filepath.Join(l.baseDir, clean)
	absBase, err := filepath.Abs(l.baseDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	absFull, err := filepath.Abs(full)
	if err != nil || !strings.HasPrefix(absFull, absBase+string(os.PathSeparator)) {
		writeError(w, http.StatusForbidden, errors.New("invalid media path"))
		return
	}
	http.ServeFile(w, r, absFull)
}

// sanitizePathComponent removes path separators and null bytes from a single
// path element.
func sanitizePathComponent(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "unnamed"
	}
	return s
}
