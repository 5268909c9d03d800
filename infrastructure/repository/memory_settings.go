package repository

import (
	"context"
	"sort"
	"sync"

	"tunebridge-go/domain/settings"
)

// MemorySettingsRepository implements settings.Repository in process memory.
// It backs the "memory" storage driver and tests.
type MemorySettingsRepository struct {
	mu   sync.RWMutex
	data map[string]*settings.Setting
}

// NewMemorySettingsRepository creates an empty in-memory settings repository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{data: make(map[string]*settings.Setting)}
}

func (r *MemorySettingsRepository) Find(ctx context.Context, key string) (*settings.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.data[key]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *MemorySettingsRepository) FindAll(ctx context.Context) ([]*settings.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*settings.Setting, 0, len(r.data))
	for _, s := range r.data {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *MemorySettingsRepository) Upsert(ctx context.Context, s *settings.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.Key] = s.Clone()
	return nil
}

func (r *MemorySettingsRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
	return nil
}
