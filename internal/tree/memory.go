package tree

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process. Tests use it to observe what
// would have been persisted.
type MemoryBackend struct {
	mu    sync.Mutex
	docs  map[string]map[string]any
	saves int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string]map[string]any{}}
}

func (b *MemoryBackend) Load(_ context.Context, namespace string) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, ok := b.docs[namespace]
	if !ok {
		return nil, nil
	}
	return deepCopy(doc).(map[string]any), nil
}

func (b *MemoryBackend) Save(_ context.Context, namespace string, doc map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[namespace] = deepCopy(doc).(map[string]any)
	b.saves++
	return nil
}

func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
