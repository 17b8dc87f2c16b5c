// Package vfs provides the file systems a running program's open/read/close
// calls are resolved against: the host file system for the command-line
// driver, and an in-memory disk for tests and sandboxed runs.
package vfs

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
)

// MaxDiskBytes is the capacity of an in-memory disk (1.44MB).
const MaxDiskBytes = 1474560

var (
	ErrFileNotFound  = errors.New("file not found")
	ErrQuotaExceeded = errors.New("disk quota exceeded")
)

// File is an open file as seen by a running program. Programs only ever
// read: the instruction set has open/read/close traps and nothing else.
type File = io.ReadCloser

// FS opens files by name on behalf of a running program.
type FS interface {
	Open(name string) (File, error)
}

// HostFS resolves names against the host file system.
type HostFS struct{}

func (HostFS) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

// MemFS is an in-memory file system with a fixed quota. The zero value is
// not usable; call NewMemFS.
type MemFS struct {
	mu        sync.RWMutex
	files     map[string][]byte
	usedBytes int
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Write stores data under filename, overwriting any previous contents. The
// data is deep copied so later mutations by the caller cannot be observed.
func (fs *MemFS) Write(filename string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldSize := len(fs.files[filename])
	if fs.usedBytes-oldSize+len(data) > MaxDiskBytes {
		return ErrQuotaExceeded
	}
	fs.files[filename] = append([]byte(nil), data...)
	fs.usedBytes = fs.usedBytes - oldSize + len(data)
	return nil
}

// Open returns a reader over the file's contents at the time of the call.
func (fs *MemFS) Open(name string) (File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, ok := fs.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Size returns the size of a file in bytes.
func (fs *MemFS) Size(filename string) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, ok := fs.files[filename]
	if !ok {
		return 0, ErrFileNotFound
	}
	return len(data), nil
}

// Delete removes a file.
func (fs *MemFS) Delete(filename string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[filename]
	if !ok {
		return ErrFileNotFound
	}
	fs.usedBytes -= len(data)
	delete(fs.files, filename)
	return nil
}
