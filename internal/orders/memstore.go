package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-process Store. A unit of work holds the store mutex for
// its whole duration and works on a copy that replaces the live state only
// on success.
type MemStore struct {
	mu    sync.Mutex
	state memState
}

type memState struct {
	books     map[int64]Book
	orders    map[int64]Order
	items     map[int64][]int64
	nextBook  int64
	nextOrder int64
}

func NewMemStore() *MemStore {
	return &MemStore{state: memState{
		books:  map[int64]Book{},
		orders: map[int64]Order{},
		items:  map[int64][]int64{},
	}}
}

var _ Store = (*MemStore)(nil)

func (s memState) clone() memState {
	out := memState{
		books:     make(map[int64]Book, len(s.books)),
		orders:    make(map[int64]Order, len(s.orders)),
		items:     make(map[int64][]int64, len(s.items)),
		nextBook:  s.nextBook,
		nextOrder: s.nextOrder,
	}
	for k, v := range s.books {
		out.books[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.items {
		out.items[k] = append([]int64(nil), v...)
	}
	return out
}

func (s *MemStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{st: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

func (s *MemStore) BooksByIDs(_ context.Context, ids []int64) ([]Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.booksByIDs(ids), nil
}

func (s *MemStore) GetBook(_ context.Context, id int64) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return b, nil
}

func (s *MemStore) IncrementViews(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.books[id]
	if !ok {
		return ErrBookNotFound
	}
	b.Views++
	s.state.books[id] = b
	return nil
}

func (s *MemStore) GetOrder(_ context.Context, id int64) (OrderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	if !ok {
		return OrderView{}, ErrOrderNotFound
	}
	return s.state.view(o), nil
}

func (s *MemStore) ListOrdersByBuyer(_ context.Context, buyerID int64) ([]OrderView, error) {
	return s.list(func(o Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *MemStore) ListOrdersBySeller(_ context.Context, sellerID int64) ([]OrderView, error) {
	return s.list(func(o Order) bool { return o.SellerID == sellerID }), nil
}

func (s *MemStore) list(match func(Order) bool) []OrderView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OrderView
	for _, o := range s.state.orders {
		if match(o) {
			out = append(out, s.state.view(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s memState) view(o Order) OrderView {
	return OrderView{Order: o, BookIDs: append([]int64{}, s.items[o.ID]...)}
}

func (s memState) booksByIDs(ids []int64) []Book {
	seen := map[int64]bool{}
	var out []Book
	for _, id := range ids {
		if b, ok := s.books[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct{ st memState }

func (t *memTx) LockBooks(_ context.Context, ids []int64) ([]Book, error) {
	return t.st.booksByIDs(ids), nil
}

func (t *memTx) SetBookStatus(_ context.Context, id int64, status BookStatus) error {
	b, ok := t.st.books[id]
	if !ok {
		return ErrBookNotFound
	}
	b.Status = status
	t.st.books[id] = b
	return nil
}

func (t *memTx) CreateBook(_ context.Context, b Book) (int64, error) {
	t.st.nextBook++
	b.ID = t.st.nextBook
	t.st.books[b.ID] = b
	return b.ID, nil
}

func (t *memTx) UpdateBook(_ context.Context, b Book) error {
	cur, ok := t.st.books[b.ID]
	if !ok {
		return ErrBookNotFound
	}
	cur.Title, cur.Price, cur.Exchangeable = b.Title, b.Price, b.Exchangeable
	t.st.books[b.ID] = cur
	return nil
}

func (t *memTx) CreateOrder(_ context.Context, o Order) (int64, error) {
	t.st.nextOrder++
	o.ID = t.st.nextOrder
	t.st.orders[o.ID] = o
	return o.ID, nil
}

func (t *memTx) AddOrderItems(_ context.Context, orderID int64, bookIDs []int64) error {
	if _, ok := t.st.orders[orderID]; !ok {
		return ErrOrderNotFound
	}
	t.st.items[orderID] = append(t.st.items[orderID], bookIDs...)
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (t *memTx) SetOrderStatus(_ context.Context, id int64, status Status) error {
	o, ok := t.st.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	t.st.orders[id] = o
	return nil
}

func (t *memTx) OrderItemBookIDs(_ context.Context, orderID int64) ([]int64, error) {
	return append([]int64(nil), t.st.items[orderID]...), nil
}
