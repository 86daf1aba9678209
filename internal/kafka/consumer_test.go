package kafka

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// fakeReader hands out msgs, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestConsumerKeepsPartitionOrder(t *testing.T) {
	const partitions, perPartition = 3, 20
	r := &fakeReader{}
	for off := 0; off < perPartition; off++ {
		for p := 0; p < partitions; p++ {
			r.msgs = append(r.msgs, kafka.Message{Partition: p, Offset: int64(off)})
		}
	}

	var (
		mu   sync.Mutex
		seen = map[int][]int64{}
		all  = make(chan struct{})
		n    int
	)
	h := func(_ context.Context, m kafka.Message) error {
		time.Sleep(time.Duration(rand.Intn(300)) * time.Microsecond)
		mu.Lock()
		defer mu.Unlock()
		seen[m.Partition] = append(seen[m.Partition], m.Offset)
		if n++; n == partitions*perPartition {
			close(all)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newConsumer(r, 4, nil).Start(ctx, h) }()

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for messages")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start: %v", err)
	}

	for p := 0; p < partitions; p++ {
		offs := seen[p]
		if len(offs) != perPartition {
			t.Fatalf("partition %d handled %d messages", p, len(offs))
		}
		for i, off := range offs {
			if off != int64(i) {
				t.Fatalf("partition %d out of order: %v", p, offs)
			}
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.committed) != partitions*perPartition || !r.closed {
		t.Fatalf("committed=%d closed=%v", len(r.committed), r.closed)
	}
}

func TestConsumerSkipsCommitOnHandlerError(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Partition: 0, Offset: 0}}}
	handled := make(chan int64, 1)
	h := func(_ context.Context, m kafka.Message) error {
		handled <- m.Offset
		return errors.New("redis down")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newConsumer(r, 2, nil).Start(ctx, h) }()
	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out")
	}
	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.committed) != 0 {
		t.Fatalf("committed = %+v", r.committed)
	}
}

func TestWorkerFor(t *testing.T) {
	if workerFor(5, 4) != 1 || workerFor(0, 4) != 0 || workerFor(-3, 2) != 1 {
		t.Fatalf("unexpected worker routing")
	}
}
