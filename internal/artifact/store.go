// Package artifact manages generated audio files inside one fixed
// output directory. Existence on disk is the only state.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"news-podcast-agent/internal/domain"
)

// Store resolves, reads, and removes files inside a managed directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on
// first use, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the managed directory path.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns the absolute path for filename inside the managed
// directory, rejecting names that would escape it.
func (s *Store) PathFor(filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return filepath.Join(s.dir, filename), nil
}

// Exists reports whether the named file is present.
func (s *Store) Exists(filename string) bool {
	path, err := s.PathFor(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Open returns a reader over the named file. The caller closes it.
func (s *Store) Open(filename string) (io.ReadCloser, error) {
	path, err := s.PathFor(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes the named file. Deleting an absent file is a no-op.
func (s *Store) Delete(filename string) error {
	path, err := s.PathFor(filename)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// validateFilename rejects empty names, separators, and traversal segments.
func validateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return domain.ErrInvalidFilename
	}
	if filepath.IsAbs(filename) {
		return domain.ErrInvalidFilename
	}
	if strings.ContainsAny(filename, `/\`) {
		return domain.ErrInvalidFilename
	}
	if filename == "." || filename == ".." || strings.Contains(filename, "..") {
		return domain.ErrInvalidFilename
	}
	return nil
}
