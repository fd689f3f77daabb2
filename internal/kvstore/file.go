package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mrz1836/nopewallet/internal/fileutil"
)

// File is a Store persisted as one JSON object on disk. Every write
// rewrites the file atomically with owner-only permissions.
type File struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// OpenFile loads path, or starts empty if it does not exist yet.
func OpenFile(path string) (*File, error) {
	raw, err := fileutil.ReadIfExists(path)
	if err != nil {
		return nil, err
	}

	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parsing store file: %w", err)
		}
	}
	return &File{path: path, data: data}, nil
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.data[key]
	f.data[key] = value
	if err := f.flush(); err != nil {
		if existed {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.data[key]
	if !existed {
		return nil
	}
	delete(f.data, key)
	if err := f.flush(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

// Keys implements Store.
func (f *File) Keys(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.data), nil
}

func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store file: %w", err)
	}
	return fileutil.WriteAtomic(f.path, raw, fileutil.PrivateFilePerm)
}
