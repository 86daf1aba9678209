package orders

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusRejected: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRejected:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type BookStatus string

const (
	BookActive   BookStatus = "active"
	BookReserved BookStatus = "reserved"
	BookSold     BookStatus = "sold"
)

var validBookNext = map[BookStatus]map[BookStatus]bool{
	BookActive:   {BookReserved: true},
	BookReserved: {BookSold: true, BookActive: true},
	BookSold:     {},
}

func CanTransitionBook(from, to BookStatus) bool {
	return validBookNext[from][to]
}

func (s BookStatus) Valid() bool {
	_, ok := validBookNext[s]
	return ok
}

// bookTarget is the status an order's books move to when the order enters s.
var bookTarget = map[Status]BookStatus{
	StatusPending:   BookReserved,
	StatusCompleted: BookSold,
	StatusRejected:  BookActive,
	StatusCancelled: BookActive,
}

// BookStatusFor returns the book status implied by an order in status s.
func BookStatusFor(s Status) (BookStatus, bool) {
	b, ok := bookTarget[s]
	return b, ok
}

type OrderType string

const (
	TypeBuy      OrderType = "buy"
	TypeExchange OrderType = "exchange"
)

func (t OrderType) Valid() bool {
	return t == TypeBuy || t == TypeExchange
}

// ParseStatus, ParseBookStatus and ParseOrderType convert stored column
// values, rejecting anything the engine does not know.
func ParseStatus(v string) (Status, error) {
	if s := Status(v); s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown order status %q", v)
}

func ParseBookStatus(v string) (BookStatus, error) {
	if s := BookStatus(v); s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown book status %q", v)
}

func ParseOrderType(v string) (OrderType, error) {
	if t := OrderType(v); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown order type %q", v)
}
