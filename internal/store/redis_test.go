package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := NewRedisStoreFromClient(rdb, prefix, testLogger())
	t.Cleanup(func() { st.Close() })
	return st, mr
}

func TestRedisStore_Contract(t *testing.T) {
	st, _ := newRedisStoreTest(t, "")
	runStoreContract(t, st)
}

func TestRedisStore_KeysArePrefixed(t *testing.T) {
	st, mr := newRedisStoreTest(t, "shop-dev")
	if err := st.Set(context.Background(), "access_token", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("shop-dev:access_token") {
		t.Errorf("expected key shop-dev:access_token, have %v", mr.Keys())
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr}, testLogger()); err == nil {
		t.Error("expected ping error for closed server")
	}
}
