package usecase

import (
	"sync"

	"PriceTrack/internal/services/forecast"
)

type registryEntry struct {
	trained *forecast.Trained
	tail    []float64
}

// ModelRegistry keeps trained bundles in memory, evicting the oldest
// session once capacity is reached.
type ModelRegistry struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]registryEntry
	order    []string
}

func NewModelRegistry(capacity int) *ModelRegistry {
	if capacity <= 0 {
		capacity = 64
	}
	return &ModelRegistry{capacity: capacity, entries: make(map[string]registryEntry, capacity)}
}

// Put stores a bundle and the trailing prices it was trained on.
func (r *ModelRegistry) Put(id string, t *forecast.Trained, tail []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		r.order = append(r.order, id)
	}
	r.entries[id] = registryEntry{trained: t, tail: append([]float64(nil), tail...)}
	for len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.entries, oldest)
	}
}

func (r *ModelRegistry) Get(id string) (*forecast.Trained, []float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil, false
	}
	return e.trained, e.tail, true
}

func (r *ModelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
