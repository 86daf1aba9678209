package orders

import "context"

func (e *Engine) ListOrdersForBuyer(ctx context.Context, buyerID int64) ([]OrderView, error) {
	out, err := e.store.ListOrdersByBuyer(ctx, buyerID)
	return out, storeErr("list buyer orders", err)
}

func (e *Engine) ListOrdersForSeller(ctx context.Context, sellerID int64) ([]OrderView, error) {
	out, err := e.store.ListOrdersBySeller(ctx, sellerID)
	return out, storeErr("list seller orders", err)
}

// GetOrder returns the order only to its buyer or seller; anyone else gets
// ErrOrderNotFound.
func (e *Engine) GetOrder(ctx context.Context, actorID, orderID int64) (OrderView, error) {
	v, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return OrderView{}, storeErr("get order", err)
	}
	if v.BuyerID != actorID && v.SellerID != actorID {
		return OrderView{}, ErrOrderNotFound
	}
	return v, nil
}

// Books returns the listings among ids, ordered by id; unknown ids are skipped.
func (e *Engine) Books(ctx context.Context, ids []int64) ([]Book, error) {
	if len(ids) == 0 {
		return []Book{}, nil
	}
	out, err := e.store.BooksByIDs(ctx, ids)
	return out, storeErr("books by ids", err)
}
