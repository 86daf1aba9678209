package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCompleted = "OrderCompleted"
	EventOrderRejected  = "OrderRejected"
	EventOrderCancelled = "OrderCancelled"
)

var eventForStatus = map[Status]string{
	StatusPending:   EventOrderCreated,
	StatusCompleted: EventOrderCompleted,
	StatusRejected:  EventOrderRejected,
	StatusCancelled: EventOrderCancelled,
}

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "bookswap-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// OrderEventPayload is shared by every lifecycle event.
type OrderEventPayload struct {
	OrderID  int64     `json:"order_id"`
	BuyerID  int64     `json:"buyer_id"`
	SellerID int64     `json:"seller_id"`
	Type     OrderType `json:"type"`
	From     Status    `json:"from,omitempty"`
	Status   Status    `json:"status"`
	ActorID  int64     `json:"actor_id"`
	BookIDs  []int64   `json:"book_ids"`
}

// EventPublisher receives lifecycle events after their transition committed.
type EventPublisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Envelope) error { return nil }

func NewEnvelope(producer, traceID string, p OrderEventPayload) (Envelope, error) {
	typ, ok := eventForStatus[p.Status]
	if !ok {
		return Envelope{}, fmt.Errorf("no event for status %q", p.Status)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     typ,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(p.OrderID, 10),
		Payload:       raw,
	}, nil
}
