package orders

import "context"

// SellerGroup is one order-intent: the cart books of a single seller in cart order.
type SellerGroup struct {
	SellerID int64
	Books    []Book
}

// Aggregate groups books by seller following the order of ids. Ids with no
// matching book are dropped and duplicate ids collapse.
func Aggregate(ids []int64, books []Book) []SellerGroup {
	byID := make(map[int64]Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	var groups []SellerGroup
	idx := map[int64]int{}
	seen := map[int64]bool{}
	for _, id := range ids {
		b, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		i, ok := idx[b.SellerID]
		if !ok {
			i = len(groups)
			idx[b.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: b.SellerID})
		}
		groups[i].Books = append(groups[i].Books, b)
	}
	return groups
}

func (e *Engine) aggregate(ctx context.Context, ids []int64) ([]SellerGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	books, err := e.store.BooksByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("books by ids", err)
	}
	return Aggregate(ids, books), nil
}

func (g SellerGroup) BookIDs() []int64 {
	out := make([]int64, 0, len(g.Books))
	for _, b := range g.Books {
		out = append(out, b.ID)
	}
	return out
}
