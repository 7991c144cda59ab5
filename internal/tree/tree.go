// Package tree is the durable key/value tree used for plugin state. Each
// namespace is one document addressed by dotted paths and persisted as a whole
// through a Backend.
package tree

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Backend persists whole namespace documents. Load returns a nil map when the
// namespace has never been saved.
type Backend interface {
	Load(ctx context.Context, namespace string) (map[string]any, error)
	Save(ctx context.Context, namespace string, doc map[string]any) error
}

type document struct {
	namespace string
	backend   Backend

	mu   sync.Mutex
	data map[string]any

	saveMu  sync.Mutex
	pending sync.WaitGroup
}

// Tree is a view of a namespace document rooted at a path prefix. Views made
// with Sub share storage with their parent.
type Tree struct {
	doc    *document
	prefix []string
}

func newTree(namespace string, backend Backend, data map[string]any) *Tree {
	if data == nil {
		data = map[string]any{}
	}
	return &Tree{doc: &document{namespace: namespace, backend: backend, data: data}}
}

// NewDetached returns a tree with no backend; saves are no-ops.
func NewDetached() *Tree {
	return newTree("", nil, nil)
}

func (t *Tree) Namespace() string { return t.doc.namespace }

func (t *Tree) Sub(path string) *Tree {
	return &Tree{doc: t.doc, prefix: t.fullPath(path)}
}

func (t *Tree) fullPath(path string) []string {
	out := make([]string, 0, len(t.prefix)+4)
	out = append(out, t.prefix...)
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (t *Tree) Get(path string) (any, bool) {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	v, ok := lookup(t.doc.data, t.fullPath(path))
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

func (t *Tree) Has(path string) bool {
	_, ok := t.Get(path)
	return ok
}

// Set stores v at path, creating intermediate sections.
func (t *Tree) Set(path string, v any) {
	parts := t.fullPath(path)
	if len(parts) == 0 {
		return
	}
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	node := t.doc.data
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = deepCopy(v)
}

// Remove deletes path and reports whether it existed.
func (t *Tree) Remove(path string) bool {
	parts := t.fullPath(path)
	if len(parts) == 0 {
		return false
	}
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	parent, ok := lookup(t.doc.data, parts[:len(parts)-1])
	if !ok {
		return false
	}
	m, ok := parent.(map[string]any)
	if !ok {
		return false
	}
	last := parts[len(parts)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	return true
}

// Keys lists the child keys of the section at path, sorted.
func (t *Tree) Keys(path string) []string {
	t.doc.mu.Lock()
	defer t.doc.mu.Unlock()
	v, ok := lookup(t.doc.data, t.fullPath(path))
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the whole namespace document synchronously.
func (t *Tree) Save(ctx context.Context) error {
	d := t.doc
	if d.backend == nil {
		return nil
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	d.mu.Lock()
	snapshot := deepCopy(d.data).(map[string]any)
	d.mu.Unlock()
	if err := d.backend.Save(ctx, d.namespace, snapshot); err != nil {
		metricSaveErrorsTotal.Add(1)
		return err
	}
	metricSavesTotal.Add(1)
	return nil
}

// SaveAsync schedules a background save. The snapshot is taken once the
// previous save of the same document finished, so the last save always
// carries the newest state.
func (t *Tree) SaveAsync() {
	if t.doc.backend == nil {
		return
	}
	t.doc.pending.Add(1)
	go func() {
		defer t.doc.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Save(ctx); err != nil {
			log.Warn().Err(err).Str("namespace", t.doc.namespace).Msg("async tree save failed")
		}
	}()
}

// Wait blocks until every pending SaveAsync of this document has finished.
func (t *Tree) Wait() {
	t.doc.pending.Wait()
}

func lookup(data map[string]any, parts []string) (any, bool) {
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}
