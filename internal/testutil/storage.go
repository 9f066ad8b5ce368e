package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/dalemusser/waffle/pantry/storage"
)

// MemStorage is an in-memory blob store for handler tests.
type MemStorage struct {
	mu      sync.Mutex
	objects map[string]MemObject

	// PutErr and DeleteErr, when set, are returned by Put and Delete.
	PutErr    error
	DeleteErr error
}

// MemObject is one stored blob.
type MemObject struct {
	Data        []byte
	ContentType string
}

// ErrMemNotFound is returned when deleting a missing key.
var ErrMemNotFound = errors.New("object not found")

// NewMemStorage returns an empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{objects: map[string]MemObject{}}
}

func (m *MemStorage) Put(_ context.Context, path string, r io.Reader, opts *storage.PutOptions) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	obj := MemObject{Data: data}
	if opts != nil {
		obj.ContentType = opts.ContentType
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = obj
	return nil
}

func (m *MemStorage) Delete(_ context.Context, path string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return ErrMemNotFound
	}
	delete(m.objects, path)
	return nil
}

// Get returns a reader over a stored blob.
func (m *MemStorage) Get(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	if !ok {
		return nil, ErrMemNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

func (m *MemStorage) URL(path string) string {
	return "/vicar_data/" + path
}

// Has reports whether path is stored.
func (m *MemStorage) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

// Object returns the stored blob at path.
func (m *MemStorage) Object(path string) (MemObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[path]
	return obj, ok
}

// Paths lists stored keys in sorted order.
func (m *MemStorage) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
