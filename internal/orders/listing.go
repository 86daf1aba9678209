package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// priceScale and maxPrice match the NUMERIC(10,2) price column.
const priceScale = 2

var maxPrice = decimal.RequireFromString("99999999.99")

// CreateListing puts a new book on the market as active.
func (e *Engine) CreateListing(ctx context.Context, sellerID int64, in NewListing) (Book, error) {
	b := Book{
		SellerID:     sellerID,
		Title:        strings.TrimSpace(in.Title),
		Price:        in.Price,
		Exchangeable: in.Exchangeable,
		Status:       BookActive,
		CreatedAt:    e.now(),
	}
	if err := validateListing(b); err != nil {
		return Book{}, err
	}
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		id, err := tx.CreateBook(ctx, b)
		b.ID = id
		return err
	})
	if err != nil {
		return Book{}, storeErr("create listing", err)
	}
	e.log.Info("listing created", zap.Int64("book_id", b.ID), zap.Int64("seller_id", sellerID))
	return b, nil
}

// UpdateListing edits seller-owned fields under the same row lock the
// engine takes for reservations. Status is never touched here.
func (e *Engine) UpdateListing(ctx context.Context, sellerID, bookID int64, u ListingUpdate) (Book, error) {
	var out Book
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		locked, err := tx.LockBooks(ctx, []int64{bookID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrBookNotFound
		}
		b := locked[0]
		if b.SellerID != sellerID {
			return ErrNotOwner
		}
		if b.Status == BookSold {
			return ErrListingLocked
		}
		// pending order bisa bertipe exchange; flag-nya ikut terkunci
		if b.Status == BookReserved && u.Exchangeable != nil && *u.Exchangeable != b.Exchangeable {
			return fmt.Errorf("%w: exchangeable cannot change while reserved", ErrListingLocked)
		}
		u.apply(&b)
		b.Title = strings.TrimSpace(b.Title)
		if err := validateListing(b); err != nil {
			return err
		}
		out = b
		return tx.UpdateBook(ctx, b)
	})
	if err != nil {
		return Book{}, storeErr("update listing", err)
	}
	return out, nil
}

// ViewBook bumps the view counter and returns the listing.
func (e *Engine) ViewBook(ctx context.Context, id int64) (Book, error) {
	if err := e.store.IncrementViews(ctx, id); err != nil {
		return Book{}, storeErr("increment views", err)
	}
	b, err := e.store.GetBook(ctx, id)
	return b, storeErr("get book", err)
}

func validateListing(b Book) error {
	if b.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	}
	if b.Price.IsNegative() {
		return fmt.Errorf("%w: negative price", ErrInvalidListing)
	}
	if !b.Price.Equal(b.Price.Round(priceScale)) {
		return fmt.Errorf("%w: price has more than %d decimals", ErrInvalidListing, priceScale)
	}
	if b.Price.GreaterThan(maxPrice) {
		return fmt.Errorf("%w: price above %s", ErrInvalidListing, maxPrice)
	}
	return nil
}
