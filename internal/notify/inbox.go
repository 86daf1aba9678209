package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Notification struct {
	EventID   string        `json:"event_id"`
	Kind      string        `json:"kind"`
	OrderID   int64         `json:"order_id"`
	Status    orders.Status `json:"status"`
	FromUser  int64         `json:"from_user"`
	BookIDs   []int64       `json:"book_ids"`
	CreatedAt time.Time     `json:"created_at"`
}

// Inbox is a capped, newest-first list of notifications per user.
type Inbox struct {
	Redis *redis.Client
}

func (i *Inbox) Push(ctx context.Context, userID int64, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyInbox, userID)
	_, err = i.Redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, b)
		p.LTrim(ctx, key, 0, redisx.InboxLimit-1)
		p.Expire(ctx, key, redisx.TTLInbox)
		return nil
	})
	return err
}

func (i *Inbox) List(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 || limit > redisx.InboxLimit {
		limit = redisx.InboxLimit
	}
	raw, err := i.Redis.LRange(ctx, fmt.Sprintf(redisx.KeyInbox, userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
