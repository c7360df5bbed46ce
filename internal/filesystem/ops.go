package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"radiocat/internal/constants"
)

// Sanitize strips characters that are unsafe in file and directory names
// and trims trailing dots and spaces.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// ResolveFile checks that path refers to an existing file. Paths containing
// a glob pattern (recorded when the downloader could not detect its exact
// output file) are expanded; the first match wins.
func ResolveFile(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil || len(matches) == 0 {
			return "", false
		}
		// get_iplayer leaves thumbnails and metadata next to the audio,
		// so prefer an audio match over whatever sorts first.
		path = matches[0]
		for _, m := range matches {
			if IsAudio(m) {
				path = m
				break
			}
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// IsAudio reports whether path carries one of the audio extensions
// get_iplayer is known to produce.
func IsAudio(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtM4A, constants.ExtMP3, constants.ExtAAC:
		return true
	}
	return false
}

// Manager resolves the download and transcript directory layout.
type Manager struct {
	DownloadsPath string
	ProcessedPath string
}

func NewManager(downloadsPath, processedPath string) (*Manager, error) {
	m := &Manager{
		DownloadsPath: downloadsPath,
		ProcessedPath: processedPath,
	}
	if err := EnsureDir(m.DownloadsPath); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	if err := EnsureDir(m.ProcessedPath); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}
	return m, nil
}

// DownloadDir returns (and creates) the per-show download directory.
func (m *Manager) DownloadDir(showTitle string) (string, error) {
	dir := filepath.Join(m.DownloadsPath, Sanitize(showTitle))
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	return dir, nil
}

// ProcessedDir returns (and creates) the per-show transcript directory.
func (m *Manager) ProcessedDir(showTitle string) (string, error) {
	dir := filepath.Join(m.ProcessedPath, Sanitize(showTitle))
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}
	return dir, nil
}
