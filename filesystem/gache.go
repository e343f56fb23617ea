package filesystem

import (
	"io"
	"os"
)

// Gache routes gache stores through the current backend, so history and version caches
// land in memory under SetMemMapFs.
var Gache gacheFs

type gacheFs struct{}

func (gacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return backend.OpenFile(name, flag, perm)
}

func (gacheFs) MkdirAll(path string, perm os.FileMode) error {
	return backend.MkdirAll(path, perm)
}
