// Package testutil provides fixtures and Redis helpers shared by the
// netedit package tests.
package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisDB is the database tests write to unless
// NETEDIT_TEST_REDIS_DB says otherwise.
const DefaultRedisDB = 15

// RedisAddr returns the address of the test Redis from NETEDIT_TEST_REDIS,
// or "" when Redis-backed tests should be skipped.
func RedisAddr() string {
	return os.Getenv("NETEDIT_TEST_REDIS")
}

// RedisDB returns the database index tests use.
func RedisDB() int {
	if v := os.Getenv("NETEDIT_TEST_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			return db
		}
	}
	return DefaultRedisDB
}

// SkipIfNoRedis skips the test if the test Redis is not configured or not
// reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set NETEDIT_TEST_REDIS=host:port")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
}

// RedisClient returns a client on the flushed test database. The database
// is flushed again and the client closed on cleanup.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfNoRedis(t)

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: RedisDB()})
	ctx := context.Background()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush DB %d: %v", RedisDB(), err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

// Context returns a context with a reasonable timeout for tests.
// The cancel function is registered via t.Cleanup.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
