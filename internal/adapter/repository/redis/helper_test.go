package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/iho/merchledger/internal/infrastructure/redis"
)

// newTestRedisClient starts an in-process Redis and connects to it the way
// cmd/server does. The client is closed when the test ends.
func newTestRedisClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}
