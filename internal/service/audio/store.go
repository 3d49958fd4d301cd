// Package audio persists synthesized clips under the static dir so they can
// be served back to the browser at a predictable URL prefix.
package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// URLPrefix is where the HTTP layer mounts the static dir.
const URLPrefix = "/static"

// FallbackFile is the pre-recorded clip played when any pipeline stage fails.
const FallbackFile = "fallback.mp3"

// Store writes generated audio files into a directory on disk. Files are
// named with fresh UUIDs so concurrent turns never clobber each other.
type Store struct {
	dir string
}

// NewStore ensures the directory exists and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create static dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory, for the HTTP file server.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the clip and returns its public URL path.
func (s *Store) Save(data []byte, ext string) (string, error) {
	if ext == "" {
		ext = "mp3"
	}
	name := uuid.NewString() + "." + ext

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file %s: %w", name, err)
	}
	return URLPrefix + "/" + name, nil
}

// FallbackURL returns the public path of the pre-recorded fallback clip.
func (s *Store) FallbackURL() string {
	return URLPrefix + "/" + FallbackFile
}
