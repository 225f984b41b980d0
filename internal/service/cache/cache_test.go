package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	svc := NewCacheServiceFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestSetGetDel(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "k", sample{Name: "a", Count: 2}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got sample
	if err := c.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Fatalf("got %+v", got)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("ttl=%s", ttl)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if mr.Exists("k") {
		t.Fatalf("key still present")
	}
}

func TestGetMissLeavesTargetUntouched(t *testing.T) {
	c, _ := newTestCache(t)
	got := sample{Name: "keep"}
	if err := c.Get(context.Background(), "missing", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "keep" {
		t.Fatalf("target modified on miss: %+v", got)
	}
}

func TestGetCorruptValue(t *testing.T) {
	c, mr := newTestCache(t)
	if err := mr.Set("bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var got sample
	if err := c.Get(context.Background(), "bad", &got); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestUpdate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var v sample
	err := c.Update(ctx, "u", &v, time.Minute, func(found bool) (bool, error) {
		if found {
			t.Fatalf("unexpected existing value")
		}
		v.Count = 1
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	v = sample{}
	err = c.Update(ctx, "u", &v, time.Minute, func(found bool) (bool, error) {
		if !found || v.Count != 1 {
			t.Fatalf("expected stored value, found=%v v=%+v", found, v)
		}
		v.Count++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	var got sample
	_ = c.Get(ctx, "u", &got)
	if got.Count != 2 {
		t.Fatalf("count=%d", got.Count)
	}

	err = c.Update(ctx, "u", &v, time.Minute, func(bool) (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("Update delete: %v", err)
	}
	if mr.Exists("u") {
		t.Fatalf("key should be deleted")
	}

	sentinel := errors.New("stop")
	if err := c.Update(ctx, "u", &v, time.Minute, func(bool) (bool, error) { return true, sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if mr.Exists("u") {
		t.Fatalf("failed update must not write")
	}
}

func TestParseRedisURL(t *testing.T) {
	cfg, err := ParseRedisURL("redis://:secret@cache.local:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if cfg.Host != "cache.local" || cfg.Port != 6380 || cfg.Password != "secret" || cfg.DB != 2 || cfg.TLS {
		t.Fatalf("unexpected config %+v", cfg)
	}
	cfg, err = ParseRedisURL("rediss://cache.local")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if cfg.Port != 6379 || !cfg.TLS {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := ParseRedisURL("http://cache.local"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := ParseRedisURL("redis://cache.local/x"); err == nil {
		t.Fatalf("expected db error")
	}
}

func TestNewCacheServicePings(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	cfg, err := ParseRedisURL("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	svc, err := NewCacheService(*cfg, nil)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	_ = svc.Close()
	mr.Close()

	if _, err := NewCacheService(*cfg, nil); err == nil {
		t.Fatalf("expected ping failure after server shutdown")
	}
}
