// Package cache keeps short-lived JSON documents, one file per key, under the cache directory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playengine/playengine/filesystem"
	"github.com/playengine/playengine/where"
)

// DefaultTTL applies when a Store is given a non-positive lifetime.
const DefaultTTL = 6 * time.Hour

// Store is a directory of cached documents sharing one lifetime.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New returns a store kept in a named subdirectory of where.Cache().
func New(name string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{dir: filepath.Join(where.Cache(), name), ttl: ttl, now: time.Now}
}

// Key derives a stable file name from the parts of a request.
func Key(parts ...string) string {
	normalized := strings.ToLower(strings.Join(parts, "\x00"))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Read decodes a cached document into target if it exists and has not expired.
func (s *Store) Read(key string, target any) bool {
	path := filepath.Join(s.dir, key)

	info, err := filesystem.API().Stat(path)
	if err != nil || s.now().Sub(info.ModTime()) > s.ttl {
		return false
	}

	f, err := filesystem.API().Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	return json.NewDecoder(f).Decode(target) == nil
}

// Write stores a document, replacing it atomically.
func (s *Store) Write(key string, data any) error {
	if err := filesystem.API().MkdirAll(s.dir, os.ModePerm); err != nil {
		return err
	}

	path := filepath.Join(s.dir, key)
	tmpPath := path + ".tmp"

	f, err := filesystem.API().Create(tmpPath)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		return err
	}
	f.Close()

	return filesystem.API().Rename(tmpPath, path)
}

// Delete drops one document.
func (s *Store) Delete(key string) {
	_ = filesystem.API().Remove(filepath.Join(s.dir, key))
}

// CollectGarbage removes expired documents and returns how many were removed.
func (s *Store) CollectGarbage() int {
	var removed int
	_ = filesystem.API().Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if s.now().Sub(info.ModTime()) > s.ttl {
			if filesystem.API().Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed
}
