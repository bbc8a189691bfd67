package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	data     map[string]string
	counters map[string]int64
	expired  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data:     map[string]string{},
		counters: map[string]int64{},
		expired:  map[string]time.Duration{},
	}
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := f.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expired[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	client := &Client{store: fake}

	for attempt := int64(1); attempt <= 2; attempt++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "login", 2, time.Second)
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if !allowed || count != attempt {
			t.Fatalf("attempt %d: allowed=%v count=%d", attempt, allowed, count)
		}
	}

	allowed, _, err := client.FixedWindowAllow(ctx, "login", 2, time.Second)
	if err != nil {
		t.Fatalf("third attempt: %v", err)
	}
	if allowed {
		t.Fatal("third attempt should exceed the limit")
	}

	// The window TTL is stamped once, on the increment that creates the key.
	if len(fake.expired) != 1 {
		t.Fatalf("expected exactly one expire call, got %d", len(fake.expired))
	}
	if ttl := fake.expired[client.RateLimitKey("login")]; ttl != time.Second {
		t.Fatalf("unexpected window ttl %v", ttl)
	}
}

func TestAccessSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFakeRedis()}

	key := client.AccessSessionKey("access-1")
	if err := client.Set(ctx, key, "refresh-token", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	token, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if token != "refresh-token" {
		t.Fatalf("expected stored token, got %q", token)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	cases := map[string]string{
		client.IdempotencyKey("scope", "id"): "shop:idempotency:scope:id",
		client.RateLimitKey("scope"):         "shop:rate_limit:scope",
		client.CounterKey("hits"):            "shop:counter:hits",
		client.AccessSessionKey("abc"):       "shop:session:access:abc",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected key %q, got %q", want, got)
		}
	}
}

func TestUninitializedClientRefusesCommands(t *testing.T) {
	client := &Client{}
	if err := client.Set(context.Background(), "k", "v", 0); err != errNotReady {
		t.Fatalf("expected errNotReady, got %v", err)
	}
	if _, err := client.Get(context.Background(), "k"); err != errNotReady {
		t.Fatalf("expected errNotReady, got %v", err)
	}
}
