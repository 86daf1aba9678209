package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart has nothing to check out")
	ErrNotOwner          = errors.New("actor does not own the order")
	ErrInvalidTransition = errors.New("status transition not permitted")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrOrderNotFound     = errors.New("order not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrListingLocked     = errors.New("listing can no longer be edited")
	ErrInvalidListing    = errors.New("invalid listing")
	ErrInvalidOrderType  = errors.New("invalid order type")
)

// StoreError wraps a persistence failure. The transition it interrupted was
// rolled back, so the caller may retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a store failure.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func isBusiness(err error) bool {
	for _, b := range []error{
		ErrEmptyCart, ErrNotOwner, ErrInvalidTransition, ErrNotCancellable,
		ErrOrderNotFound, ErrBookNotFound, ErrListingLocked,
		ErrInvalidListing, ErrInvalidOrderType,
	} {
		if errors.Is(err, b) {
			return true
		}
	}
	return false
}

// storeErr leaves business outcomes untouched and wraps everything else.
func storeErr(op string, err error) error {
	if err == nil || isBusiness(err) || IsRetryable(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
