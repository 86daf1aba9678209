package orders

import "context"

// Store is the catalog + order persistence consumed by the Engine.
// Reads outside WithinTx see committed state only.
type Store interface {
	BooksByIDs(ctx context.Context, ids []int64) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	IncrementViews(ctx context.Context, id int64) error

	GetOrder(ctx context.Context, id int64) (OrderView, error)
	ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]OrderView, error)
	ListOrdersBySeller(ctx context.Context, sellerID int64) ([]OrderView, error)

	// WithinTx runs fn in one atomic unit of work. Any error returned by fn
	// rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a unit of work. Lock* methods hold the returned rows exclusively
// until the unit commits or rolls back.
type Tx interface {
	// LockBooks returns the existing books among ids, ordered by id.
	LockBooks(ctx context.Context, ids []int64) ([]Book, error)
	SetBookStatus(ctx context.Context, id int64, status BookStatus) error
	CreateBook(ctx context.Context, b Book) (int64, error)
	UpdateBook(ctx context.Context, b Book) error

	CreateOrder(ctx context.Context, o Order) (int64, error)
	AddOrderItems(ctx context.Context, orderID int64, bookIDs []int64) error
	// LockOrder returns ErrOrderNotFound when the order does not exist.
	LockOrder(ctx context.Context, id int64) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, status Status) error
	OrderItemBookIDs(ctx context.Context, orderID int64) ([]int64, error)
}

// CartSource is the per-buyer cart the request layer hands to checkout.
type CartSource interface {
	List(ctx context.Context, buyerID int64) ([]int64, error)
	Clear(ctx context.Context, buyerID int64) error
}
