// Package redisstore keeps namespace documents in Redis, one JSON value per
// namespace.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Backend struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

// Dial connects and pings the server.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Backend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (b *Backend) key(namespace string) string {
	return b.prefix + "tree:" + namespace
}

// Load returns nil when the namespace was never saved.
func (b *Backend) Load(ctx context.Context, namespace string) (map[string]any, error) {
	raw, err := b.client.Get(ctx, b.key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", namespace, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", namespace, err)
	}
	return doc, nil
}

func (b *Backend) Save(ctx context.Context, namespace string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", namespace, err)
	}
	if err := b.client.Set(ctx, b.key(namespace), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", namespace, err)
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	return b.client.Close()
}
