// Package filesystem provides a virtualized abstraction layer for all filesystem operations.
//
// It utilizes the afero library to allow seamless switching between OS-level and in-memory filesystem backends.
package filesystem

import (
	"os"

	"github.com/spf13/afero"
)

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the active afero.Afero instance for filesystem interaction.
func API() afero.Afero {
	return backend
}

// SetOsFs restores the filesystem backend to the native operating system implementation.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs initializes a volatile in-memory filesystem backend for unit testing and CI environments.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}

// IsRegular reports whether path names an existing regular file.
func IsRegular(path string) bool {
	info, err := backend.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Siblings lists the regular files sharing a directory, in the order the backend reports them.
func Siblings(dir string) ([]os.FileInfo, error) {
	entries, err := backend.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.Mode().IsRegular() {
			files = append(files, entry)
		}
	}
	return files, nil
}
