package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// EventWriter publishes order lifecycle envelopes through a Producer, keyed
// by order id.
type EventWriter struct {
	Producer *Producer
}

var _ orders.EventPublisher = EventWriter{}

func (w EventWriter) Publish(_ context.Context, env orders.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ok := w.Producer.Publish([]byte(env.CorrelationID), b,
		kafka.Header{Key: HeaderEventType, Value: []byte(env.EventType)},
		kafka.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	if !ok {
		return ErrProducerClosed
	}
	return nil
}
