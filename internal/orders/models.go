package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID           int64           `json:"id"`
	SellerID     int64           `json:"seller_id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Exchangeable bool            `json:"exchangeable"`
	Status       BookStatus      `json:"status"`
	Views        int64           `json:"views"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Order struct {
	ID        int64     `json:"id"`
	BuyerID   int64     `json:"buyer_id"`
	SellerID  int64     `json:"seller_id"`
	Type      OrderType `json:"type"`
	Status    Status    `json:"status"` // lihat status.go
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderView is an order together with the books it references.
type OrderView struct {
	Order
	BookIDs []int64 `json:"book_ids"`
}

type NewListing struct {
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Exchangeable bool            `json:"exchangeable"`
}

// ListingUpdate carries the seller-editable fields. Nil fields are left as is.
type ListingUpdate struct {
	Title        *string          `json:"title,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Exchangeable *bool            `json:"exchangeable,omitempty"`
}

func (u ListingUpdate) apply(b *Book) {
	if u.Title != nil {
		b.Title = *u.Title
	}
	if u.Price != nil {
		b.Price = *u.Price
	}
	if u.Exchangeable != nil {
		b.Exchangeable = *u.Exchangeable
	}
}

type CheckoutResult struct {
	OrderIDs []int64 `json:"order_ids"`
	// Excluded lists cart books that were no longer available when their
	// seller group was locked.
	Excluded []int64 `json:"excluded,omitempty"`
}
