package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Load returns the namespace document, or nil when it was never saved.
func (s *Store) Load(ctx context.Context, namespace string) (map[string]any, error) {
	var raw []byte
	err := mapNotFound(s.Pool.QueryRow(ctx, `SELECT doc FROM tree_documents WHERE namespace = $1`, namespace).Scan(&raw))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", namespace, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", namespace, err)
	}
	return doc, nil
}

// Save replaces the namespace document.
func (s *Store) Save(ctx context.Context, namespace string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO tree_documents (namespace, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace) DO UPDATE
		SET doc = EXCLUDED.doc,
		    updated_at = now()
	`, namespace, raw)
	if err != nil {
		return fmt.Errorf("save %s: %w", namespace, err)
	}
	return nil
}

// DeleteDocument drops a namespace document.
func (s *Store) DeleteDocument(ctx context.Context, namespace string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM tree_documents WHERE namespace = $1`, namespace)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
