package cache

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type (
	// File is cache wrapper for a small static file read from disk.
	File struct {
		path string
		ttl  time.Duration

		mu         *sync.Mutex
		validUntil time.Time
		data       []byte
	}
)

// NewFileCache creates a cache for the file at path. Content is re-read at
// most once per ttl; zero ttl reads the file on every call.
func NewFileCache(path string, ttl time.Duration) *File {
	return &File{
		path: path,
		ttl:  ttl,
		mu:   &sync.Mutex{},
	}
}

// Path returns the path of the cached file.
func (f *File) Path() string {
	return f.path
}

// Bytes returns the file content. Errors are not cached, a missing file
// yields an error matching fs.ErrNotExist.
func (f *File) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.data != nil && f.validUntil.After(time.Now()) {
		return f.data, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		f.data = nil
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	f.update(data)

	return data, nil
}

func (f *File) update(data []byte) {
	f.validUntil = time.Now().Add(f.ttl)
	f.data = data
}
