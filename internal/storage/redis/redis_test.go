package redis

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	prefix := "explog_test_" + time.Now().Format("150405.000") + ":"
	s, err := New(addr, 0, prefix)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, found, err := s.Get(ctx, "k"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "k", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || string(v) != "[]" {
		t.Fatalf("get = %q found=%v err=%v", v, found, err)
	}
	s.client.Del(s.key("k"))
}
