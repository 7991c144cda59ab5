package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"stockade/internal/config"
)

// OpenTestRedis connects to TEST_REDIS_ADDR and returns a key prefix unique
// to the test. Keys under the prefix are deleted on cleanup.
func OpenTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	if cfg.TestRedisAddr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.TestRedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	prefix := fmt.Sprintf("test_%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			_ = client.Del(ctx, iter.Val()).Err()
		}
		_ = client.Close()
	})
	return client, prefix
}
