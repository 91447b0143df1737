package storage

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrArtifactMissing is returned when a requested artifact file does not exist.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrArtifactMismatch is returned when loaded artifacts belong to different model sets.
	ErrArtifactMismatch = errors.New("artifacts belong to different models")
)

const currentVersion = 1

// Store keeps named model artifacts as JSON files in one directory.
type Store struct {
	dir    string
	logger *slog.Logger

	mu sync.RWMutex
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
	}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// ArtifactInfo describes one artifact file on disk.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Exists    bool      `json:"exists"`
	Path      string    `json:"path"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Info returns file information for each named artifact.
func (s *Store) Info(names ...string) []ArtifactInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ArtifactInfo, 0, len(names))
	for _, name := range names {
		info := ArtifactInfo{Name: name, Path: s.path(name)}
		if stat, err := os.Stat(info.Path); err == nil {
			info.Exists = true
			info.Size = stat.Size()
			info.UpdatedAt = stat.ModTime()
		}
		infos = append(infos, info)
	}
	return infos
}

// Exists reports whether every named artifact is present.
func (s *Store) Exists(names ...string) bool {
	for _, info := range s.Info(names...) {
		if !info.Exists {
			return false
		}
	}
	return true
}
