package cart

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCartSet(t *testing.T) {
	var c Cart
	if !c.Add(3) || !c.Add(1) || c.Add(3) {
		t.Fatalf("duplicate add must be reported")
	}
	c.Add(2)
	c.Remove(1)
	if got := c.Items(); !reflect.DeepEqual(got, []int64{3, 2}) {
		t.Fatalf("items = %v", got)
	}
	c.Clear()
	if c.Len() != 0 || c.Items() == nil {
		t.Fatalf("cleared cart must be empty and non-nil")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	for _, id := range []int64{30, 10, 30, 20} {
		if err := s.Add(ctx, 1, id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	if err := s.Add(ctx, 2, 99); err != nil {
		t.Fatalf("add other buyer: %v", err)
	}

	got, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(got, []int64{30, 10, 20}) {
		t.Fatalf("cart = %v, want [30 10 20]", got)
	}

	if err := s.Remove(ctx, 1, 10); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got, _ := s.List(ctx, 1); !reflect.DeepEqual(got, []int64{30, 20}) {
		t.Fatalf("after remove = %v", got)
	}

	if err := s.Clear(ctx, 1); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.List(ctx, 1); got == nil || len(got) != 0 {
		t.Fatalf("cleared cart = %v", got)
	}
	if got, _ := s.List(ctx, 2); !reflect.DeepEqual(got, []int64{99}) {
		t.Fatalf("other buyer's cart touched: %v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	_, rdb := newRedis(t)
	testStore(t, NewRedisStore(rdb, time.Hour))
}

func TestRedisStoreExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	s := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()
	if err := s.Add(ctx, 7, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if got, _ := s.List(ctx, 7); len(got) != 0 {
		t.Fatalf("expired cart still has %v", got)
	}
}

func TestRedisStoreReaddAfterRemoveGoesLast(t *testing.T) {
	_, rdb := newRedis(t)
	s := NewRedisStore(rdb, 0)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		_ = s.Add(ctx, 7, id)
	}
	_ = s.Remove(ctx, 7, 1)
	_ = s.Add(ctx, 7, 1)
	if got, _ := s.List(ctx, 7); !reflect.DeepEqual(got, []int64{2, 1}) {
		t.Fatalf("cart = %v, want [2 1]", got)
	}
}
