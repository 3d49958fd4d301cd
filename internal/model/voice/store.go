package voice

import "sync"

// Store exposes voice catalog retrieval for HTTP handlers.
type Store interface {
	List() []Voice
	FindByID(id string) (Voice, bool)
}

// MemoryStore implements Store with an in-memory slice. The catalog is seeded
// at startup and replaced wholesale once the provider list has been fetched.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Voice
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied voices.
func NewMemoryStore(items []Voice) *MemoryStore {
	return &MemoryStore{items: append([]Voice(nil), items...)}
}

// List returns the current voice catalog.
func (s *MemoryStore) List() []Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Voice(nil), s.items...)
}

// FindByID looks up a voice by identifier.
func (s *MemoryStore) FindByID(id string) (Voice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Voice{}, false
}

// Replace swaps the catalog for a freshly fetched one. Empty input is ignored
// so a failed refresh never wipes the seed.
func (s *MemoryStore) Replace(items []Voice) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	s.items = append([]Voice(nil), items...)
	s.mu.Unlock()
}
