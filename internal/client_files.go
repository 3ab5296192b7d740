package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readLocalFile loads a file for relaying. The size guard mirrors the
// server's per-frame read limit so an oversized send fails locally instead
// of killing the connection.
func readLocalFile(path string) (string, []byte, error) {
	path = expandHomePath(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxFrameSize {
		return "", nil, fmt.Errorf("%s is too large to relay (%s, limit %s)",
			filepath.Base(path), formatFileSize(info.Size()), formatFileSize(maxFrameSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(path), data, nil
}

func expandHomePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
