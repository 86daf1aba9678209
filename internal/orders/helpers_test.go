package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memCarts struct {
	mu    sync.Mutex
	items map[int64][]int64
	err   error
}

func (c *memCarts) put(buyerID int64, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[int64][]int64{}
	}
	c.items[buyerID] = append(c.items[buyerID], ids...)
}

func (c *memCarts) List(_ context.Context, buyerID int64) ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]int64(nil), c.items[buyerID]...), nil
}

func (c *memCarts) Clear(_ context.Context, buyerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, buyerID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Envelope
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

var errBoom = errors.New("connection reset")

// flakyStore fails the named Tx method inside every unit of work.
type flakyStore struct {
	*MemStore
	failOn string
}

func (f *flakyStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return f.MemStore.WithinTx(ctx, func(tx Tx) error {
		return fn(&flakyTx{Tx: tx, failOn: f.failOn})
	})
}

type flakyTx struct {
	Tx
	failOn string
}

func (t *flakyTx) SetBookStatus(ctx context.Context, id int64, s BookStatus) error {
	if t.failOn == "SetBookStatus" {
		return errBoom
	}
	return t.Tx.SetBookStatus(ctx, id, s)
}

func (t *flakyTx) SetOrderStatus(ctx context.Context, id int64, s Status) error {
	if t.failOn == "SetOrderStatus" {
		return errBoom
	}
	return t.Tx.SetOrderStatus(ctx, id, s)
}

func (t *flakyTx) AddOrderItems(ctx context.Context, orderID int64, ids []int64) error {
	if t.failOn == "AddOrderItems" {
		return errBoom
	}
	return t.Tx.AddOrderItems(ctx, orderID, ids)
}

type fixture struct {
	t     *testing.T
	store *MemStore
	eng   *Engine
	carts *memCarts
	pub   *recordingPublisher
}

// tickClock advances one second per call so orders get distinct timestamps.
func tickClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, store: NewMemStore(), carts: &memCarts{}, pub: &recordingPublisher{}}
	f.eng = NewEngine(f.store, WithCarts(f.carts), WithPublisher(f.pub), WithClock(tickClock()))
	return f
}

func (f *fixture) listing(sellerID int64, title string, exchangeable bool) int64 {
	f.t.Helper()
	b, err := f.eng.CreateListing(context.Background(), sellerID, NewListing{
		Title:        title,
		Price:        decimal.RequireFromString("12.50"),
		Exchangeable: exchangeable,
	})
	if err != nil {
		f.t.Fatalf("create listing: %v", err)
	}
	return b.ID
}

func (f *fixture) bookStatus(id int64) BookStatus {
	f.t.Helper()
	b, err := f.store.GetBook(context.Background(), id)
	if err != nil {
		f.t.Fatalf("get book %d: %v", id, err)
	}
	return b.Status
}

func (f *fixture) order(id int64) OrderView {
	f.t.Helper()
	v, err := f.store.GetOrder(context.Background(), id)
	if err != nil {
		f.t.Fatalf("get order %d: %v", id, err)
	}
	return v
}

// checkInvariants verifies that book status always agrees with the orders
// that reference the book.
func checkInvariants(t *testing.T, s *MemStore) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := map[int64]int{}
	completed := map[int64]int{}
	for oid, o := range s.state.orders {
		for _, bid := range s.state.items[oid] {
			b := s.state.books[bid]
			if b.SellerID != o.SellerID {
				t.Fatalf("order %d (seller %d) holds book %d of seller %d", oid, o.SellerID, bid, b.SellerID)
			}
			if o.Type == TypeExchange && o.Status == StatusPending && !b.Exchangeable {
				t.Fatalf("pending exchange order %d holds non-exchangeable book %d", oid, bid)
			}
			switch o.Status {
			case StatusPending:
				pending[bid]++
			case StatusCompleted:
				completed[bid]++
			}
		}
	}
	for id, b := range s.state.books {
		switch b.Status {
		case BookReserved:
			if pending[id] != 1 || completed[id] != 0 {
				t.Fatalf("reserved book %d: pending=%d completed=%d", id, pending[id], completed[id])
			}
		case BookSold:
			if completed[id] != 1 || pending[id] != 0 {
				t.Fatalf("sold book %d: pending=%d completed=%d", id, pending[id], completed[id])
			}
		case BookActive:
			if pending[id] != 0 || completed[id] != 0 {
				t.Fatalf("active book %d: pending=%d completed=%d", id, pending[id], completed[id])
			}
		default:
			t.Fatalf("book %d has unknown status %q", id, b.Status)
		}
	}
}
