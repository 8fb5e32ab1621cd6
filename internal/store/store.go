// Package store reads and writes artifact files under a single resolved
// scope root. It performs no scope inference and no caching; every call
// reflects live filesystem state.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a named artifact does not exist in the store.
var ErrNotFound = errors.New("artifact not found")

// Ext is the filename extension of slash-command artifacts.
const Ext = ".toml"

// Store is a flat directory of single-file artifacts keyed by name.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path an artifact name maps to.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+Ext)
}

// Exists reports whether the named artifact is present.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Read returns the artifact content, or ErrNotFound.
func (s *Store) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store.Read %s: %w", name, err)
	}
	return data, nil
}

// Write stores content under name, creating intermediate directories as
// needed. The write is atomic: content goes to a temp file in the target
// directory which is then renamed over the destination, so a crash mid-write
// never leaves a truncated artifact.
func (s *Store) Write(name string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("store.Write %s: create dir: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("store.Write %s: create temp: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("store.Write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store.Write %s: close temp: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { // #nosec G302 -- command artifacts are shareable documents, not secrets
		return fmt.Errorf("store.Write %s: chmod: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("store.Write %s: rename: %w", name, err)
	}
	return nil
}

// Remove deletes the named artifact, or returns ErrNotFound.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("store.Remove %s: %w", name, err)
	}
	return nil
}

// List returns the sorted names of all artifacts in the store. A missing
// root directory yields an empty list, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.List: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), Ext))
	}
	sort.Strings(names)
	return names, nil
}
