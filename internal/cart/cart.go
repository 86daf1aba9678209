// Package cart holds each buyer's pending selection of books. Carts are keyed
// by buyer id and never shared between requests of different buyers.
package cart

import "context"

// Cart is an insertion-ordered set of book ids.
type Cart struct {
	items []int64
}

// Add appends id unless it is already present and reports whether it was added.
func (c *Cart) Add(id int64) bool {
	for _, it := range c.items {
		if it == id {
			return false
		}
	}
	c.items = append(c.items, id)
	return true
}

func (c *Cart) Remove(id int64) {
	out := c.items[:0]
	for _, it := range c.items {
		if it != id {
			out = append(out, it)
		}
	}
	c.items = out
}

// Items returns a copy of the ids in insertion order. An empty cart yields an
// empty, non-nil slice.
func (c *Cart) Items() []int64 {
	return append([]int64{}, c.items...)
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Clear() { c.items = nil }

// Store keeps one cart per buyer.
type Store interface {
	Add(ctx context.Context, buyerID, bookID int64) error
	Remove(ctx context.Context, buyerID, bookID int64) error
	List(ctx context.Context, buyerID int64) ([]int64, error)
	Clear(ctx context.Context, buyerID int64) error
}
