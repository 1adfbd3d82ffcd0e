// Package storetest provides metadata stores backed by miniredis for tests
// in other packages.
package storetest

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/redis"
	"github.com/kbukum/transcriber/store"
)

// NewRedis starts a miniredis server and returns a Tasks repository on it.
// Call mini.SetError to simulate an unreachable store.
func NewRedis(t testing.TB) (*store.Tasks, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return store.NewTasks(store.NewRedisStore(client)), mini
}
