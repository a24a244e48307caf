package memstorage

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-hr-admin/sessions"
)

var _ sessions.Storage = (*MemStorage)(nil)

// MemStorage keeps records in process memory.
type MemStorage struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func New() *MemStorage {
	return &MemStorage{values: make(map[string][]byte)}
}

func (m *MemStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemStorage) Set(_ context.Context, key string, data []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.values[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemStorage) Delete(_ context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	delete(m.values, key)
	return nil
}
