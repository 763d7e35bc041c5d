// mock_storage.go - In-memory object store for testing
package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/taxi-insights/backend/internal/objectstore"
)

// MockStore implements objectstore.Store in memory.
type MockStore struct {
	objects map[string][]byte // "bucket/key" -> data
	puts    []string
	mu      sync.RWMutex

	// PutErr and ExistsErr, when set, are returned by the matching call.
	PutErr    error
	ExistsErr error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

func (m *MockStore) Put(_ context.Context, bucket, key string, body io.Reader, size int64) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("short write: got %d bytes, want %d", len(data), size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectID(bucket, key)] = data
	m.puts = append(m.puts, key)
	return nil
}

func (m *MockStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[objectID(bucket, key)]
	return ok, nil
}

func (m *MockStore) Backend() string { return "mock" }

// Ensure MockStore implements objectstore.Store
var _ objectstore.Store = (*MockStore)(nil)

// Test Helper Methods

// AddObject stores data directly, bypassing PutErr.
func (m *MockStore) AddObject(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectID(bucket, key)] = data
}

// Object returns the stored bytes and whether the object exists.
func (m *MockStore) Object(bucket, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[objectID(bucket, key)]
	return data, ok
}

// PutKeys returns the keys written through Put, in call order.
func (m *MockStore) PutKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.puts...)
}

// ObjectIDs returns every stored "bucket/key", sorted.
func (m *MockStore) ObjectIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}
