package cart

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each cart as a sorted set scored by insertion sequence,
// so duplicates collapse and order survives. Keys expire after ttl without
// activity, which bounds a cart to the buyer's session.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = redisx.TTLCart
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

var _ Store = (*RedisStore)(nil)

// KEYS[1]=cart zset, KEYS[2]=sequence, ARGV[1]=book id, ARGV[2]=ttl ms
var addScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	local seq = redis.call('INCR', KEYS[2])
	redis.call('ZADD', KEYS[1], seq, ARGV[1])
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return 1
`)

func keys(buyerID int64) (string, string) {
	return fmt.Sprintf(redisx.KeyCart, buyerID), fmt.Sprintf(redisx.KeyCartSeq, buyerID)
}

func (s *RedisStore) Add(ctx context.Context, buyerID, bookID int64) error {
	k, seq := keys(buyerID)
	return addScript.Run(ctx, s.rdb, []string{k, seq}, bookID, s.ttl.Milliseconds()).Err()
}

func (s *RedisStore) Remove(ctx context.Context, buyerID, bookID int64) error {
	k, _ := keys(buyerID)
	return s.rdb.ZRem(ctx, k, strconv.FormatInt(bookID, 10)).Err()
}

func (s *RedisStore) List(ctx context.Context, buyerID int64) ([]int64, error) {
	k, _ := keys(buyerID)
	members, err := s.rdb.ZRange(ctx, k, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cart %d: bad member %q: %w", buyerID, m, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context, buyerID int64) error {
	k, seq := keys(buyerID)
	return s.rdb.Del(ctx, k, seq).Err()
}
