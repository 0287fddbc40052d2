package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/skypro1111/feelcard-service/internal/card"
)

// MemoryIndex keeps cards in process memory, newest first. Contents are lost
// on restart.
type MemoryIndex struct {
	mu    sync.RWMutex
	items []card.Card
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Save inserts c before every card that is not newer than it
func (m *MemoryIndex) Save(ctx context.Context, c card.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := sort.Search(len(m.items), func(i int) bool {
		return !m.items[i].CreatedAt.After(c.CreatedAt)
	})
	m.items = append(m.items, card.Card{})
	copy(m.items[i+1:], m.items[i:])
	m.items[i] = c
	return nil
}

func (m *MemoryIndex) List(ctx context.Context, limit int) ([]card.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit)
	if limit > len(m.items) {
		limit = len(m.items)
	}

	out := make([]card.Card, limit)
	copy(out, m.items[:limit])
	return out, nil
}

func (m *MemoryIndex) Kind() string { return "memory" }

func (m *MemoryIndex) Close() error { return nil }
