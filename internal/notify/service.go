package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/ariefcatur/go-bookswap/internal/kafka"
	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Service turns order lifecycle events into notifications for the party
// that has to act on (or learn about) the change.
type Service struct {
	Inbox       *Inbox
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderEvent: dipasang sebagai handler consumer.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	// header cukup untuk skip event yang tidak relevan tanpa decode
	if t := kafkax.HeaderValue(m.Headers, kafkax.HeaderEventType); t != "" && !notifiable(t) {
		return nil
	}

	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.logger().Warn("drop undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil // pesan rusak tidak akan pernah sukses; commit saja
	}

	p, err := kafkax.UnwrapPayload[orders.OrderEventPayload](env.Payload)
	if err != nil {
		s.logger().Warn("drop event with bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	recipient, ok := recipientFor(env.EventType, p)
	if !ok {
		return nil // ignore
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	claimed, err := redisx.Claim(ctx, s.Redis, dkey, "1", redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	n := Notification{
		EventID:   env.EventID,
		Kind:      env.EventType,
		OrderID:   p.OrderID,
		Status:    p.Status,
		FromUser:  p.ActorID,
		BookIDs:   p.BookIDs,
		CreatedAt: env.OccurredAt,
	}
	if err := s.Inbox.Push(ctx, recipient, n); err != nil {
		// lepas klaim supaya retry bisa memproses ulang
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	s.logger().Info("notification queued",
		zap.String("event_type", env.EventType),
		zap.Int64("order_id", p.OrderID),
		zap.Int64("recipient", recipient))
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func notifiable(eventType string) bool {
	_, ok := recipientFor(eventType, orders.OrderEventPayload{})
	return ok
}

func recipientFor(eventType string, p orders.OrderEventPayload) (int64, bool) {
	switch eventType {
	case orders.EventOrderCreated, orders.EventOrderCancelled:
		return p.SellerID, true
	case orders.EventOrderCompleted, orders.EventOrderRejected:
		return p.BuyerID, true
	}
	return 0, false
}
