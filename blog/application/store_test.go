package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/pontoumdigital/blogsync/blog/domain"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory domain.ObjectStore with call recording and fault injection.
type memStore struct {
	mu      sync.Mutex
	objects map[string]domain.Object
	rev     int
	writes  []string
	deletes []string
	failOn  map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]domain.Object{}, failOn: map[string]error{}}
}

func (m *memStore) Read(_ context.Context, path string) (*domain.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["read:"+path]; err != nil {
		return nil, err
	}
	obj, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("mem: %s: %w", path, domain.ErrNotFound)
	}
	return &obj, nil
}

func (m *memStore) Write(_ context.Context, path string, content []byte, version domain.Version, _ string) (domain.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["write:"+path]; err != nil {
		return "", err
	}
	current := m.objects[path].Version
	if current != version {
		return "", &domain.ConflictError{Path: path, Expected: version, Current: current}
	}
	m.rev++
	next := domain.Version(strconv.Itoa(m.rev))
	m.objects[path] = domain.Object{Path: path, Content: append([]byte(nil), content...), Version: next}
	m.writes = append(m.writes, path)
	return next, nil
}

func (m *memStore) Delete(_ context.Context, path string, version domain.Version, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["delete:"+path]; err != nil {
		return err
	}
	obj, ok := m.objects[path]
	if !ok {
		return domain.ErrNotFound
	}
	if obj.Version != version {
		return &domain.ConflictError{Path: path, Expected: version, Current: obj.Version}
	}
	delete(m.objects, path)
	m.deletes = append(m.deletes, path)
	return nil
}

func (m *memStore) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[path]
	return ok
}

func (m *memStore) putJSON(t *testing.T, path string, v any) {
	t.Helper()
	content, err := json.Marshal(v)
	require.NoError(t, err)
	_, err = m.Write(context.Background(), path, content, m.objects[path].Version, "seed")
	require.NoError(t, err)
	m.writes = nil
}

func (m *memStore) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	obj, err := m.Read(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(obj.Content, v))
}
