package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory. Carts are created on first Add.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[int64]*Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[int64]*Cart{}}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Add(_ context.Context, buyerID, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[buyerID]
	if !ok {
		c = &Cart{}
		s.carts[buyerID] = c
	}
	c.Add(bookID)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, buyerID, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[buyerID]; ok {
		c.Remove(bookID)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, buyerID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[buyerID]
	if !ok {
		return []int64{}, nil
	}
	return c.Items(), nil
}

func (s *MemoryStore) Clear(_ context.Context, buyerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, buyerID)
	return nil
}
