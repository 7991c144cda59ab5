package tree

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var namespacePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Store hands out one Tree per namespace, loading each from the backend the
// first time it is requested.
type Store struct {
	backend Backend

	mu    sync.Mutex
	trees map[string]*Tree
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, trees: map[string]*Tree{}}
}

func (s *Store) Namespace(ctx context.Context, name string) (*Tree, error) {
	if !namespacePattern.MatchString(name) {
		return nil, fmt.Errorf("namespace %q does not match required pattern", name)
	}
	key := strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.trees[key]; t != nil {
		return t, nil
	}
	doc, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load namespace %q: %w", key, err)
	}
	t := newTree(key, s.backend, doc)
	s.trees[key] = t
	return t, nil
}

// Wait drains pending async saves of every loaded namespace.
func (s *Store) Wait() {
	s.mu.Lock()
	trees := make([]*Tree, 0, len(s.trees))
	for _, t := range s.trees {
		trees = append(trees, t)
	}
	s.mu.Unlock()
	for _, t := range trees {
		t.Wait()
	}
}
