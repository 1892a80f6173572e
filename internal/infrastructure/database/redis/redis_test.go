// internal/infrastructure/database/redis/redis_test.go
package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/logger"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestIncrWindowCountsAndExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrWindow(ctx, "rate_limit:10.0.0.1:1", time.Minute)
		if err != nil {
			t.Fatalf("IncrWindow() error = %v", err)
		}
		if got != want {
			t.Fatalf("IncrWindow() = %d, want %d", got, want)
		}
	}

	if ttl := mr.TTL("rate_limit:10.0.0.1:1"); ttl != time.Minute {
		t.Errorf("ttl = %s, want 1m", ttl)
	}

	if got, _ := c.IncrWindow(ctx, "rate_limit:10.0.0.2:1", time.Minute); got != 1 {
		t.Errorf("other key = %d, want 1", got)
	}

	mr.FastForward(time.Minute)
	if got, _ := c.IncrWindow(ctx, "rate_limit:10.0.0.1:1", time.Minute); got != 1 {
		t.Errorf("after window = %d, want 1", got)
	}
}

func TestHealthAndUnavailableServer(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	mr.Close()
	if err := c.Health(ctx); err == nil {
		t.Error("Health() with server stopped = nil, want error")
	}
	if _, err := c.IncrWindow(ctx, "rate_limit:10.0.0.1:1", time.Minute); err == nil {
		t.Error("IncrWindow() with server stopped = nil, want error")
	}
}

func TestNewConnectionFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	host, port := splitAddr(t, addr)
	cfg := &config.Config{Redis: config.RedisConfig{Host: host, Port: port, PoolSize: 1}}
	if _, err := NewConnection(cfg, logger.Discard()); err == nil {
		t.Fatal("NewConnection() = nil error for a closed server")
	}
}

func TestNewConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := splitAddr(t, mr.Addr())

	cfg := &config.Config{Redis: config.RedisConfig{Host: host, Port: port, PoolSize: 2}}
	c, err := NewConnection(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer c.Close()

	if err := c.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func splitAddr(t *testing.T, addr string) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort(%s) error = %v", addr, err)
	}
	return host, port
}
