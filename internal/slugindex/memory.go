package slugindex

import (
	"context"
	"sync"

	"ilmhub/internal/ilm"
)

// MemoryIndex keeps reservations in a map. It is only safe within a single
// process.
type MemoryIndex struct {
	mu     sync.Mutex
	owners map[string]string
}

var _ ilm.SlugIndex = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{owners: make(map[string]string)}
}

func (m *MemoryIndex) Reserve(_ context.Context, slug, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if holder, ok := m.owners[slug]; ok {
		return holder == owner, nil
	}
	m.owners[slug] = owner
	return true, nil
}

func (m *MemoryIndex) Release(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, slug)
	return nil
}
