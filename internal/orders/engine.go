package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Engine is the only writer of order status and book status. Every
// transition runs inside a single Store unit of work.
type Engine struct {
	store    Store
	carts    CartSource
	events   EventPublisher
	log      *zap.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	producer string
	now      func() time.Time
}

type Option func(*Engine)

func WithCarts(c CartSource) Option { return func(e *Engine) { e.carts = c } }

func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithMetrics(m *telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithProducer sets the producer name stamped on published envelopes.
func WithProducer(name string) Option { return func(e *Engine) { e.producer = name } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		events:   nopPublisher{},
		log:      zap.NewNop(),
		tracer:   otel.Tracer("github.com/ariefcatur/go-bookswap/internal/orders"),
		producer: "bookswap",
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Checkout reserves the given books for buyerID, creating one pending order
// per seller. Books that are no longer available when their seller group is
// locked are left out; a group left empty produces no order. ErrEmptyCart is
// returned only when no seller group could be formed at all.
func (e *Engine) Checkout(ctx context.Context, buyerID int64, bookIDs []int64, typ OrderType) (res CheckoutResult, err error) {
	ctx, span := e.tracer.Start(ctx, "orders.Checkout", trace.WithAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.Int("cart.size", len(bookIDs)),
	))
	defer e.observe(span, "checkout", time.Now(), &err)

	if typ == "" {
		typ = TypeBuy
	}
	if !typ.Valid() {
		return res, fmt.Errorf("%w: %q", ErrInvalidOrderType, typ)
	}

	groups, err := e.aggregate(ctx, bookIDs)
	if err != nil {
		return res, err
	}
	if len(groups) == 0 {
		return res, ErrEmptyCart
	}

	res.OrderIDs = []int64{}
	placed := map[int64]bool{}
	defer func() {
		res.Excluded = excludedIDs(bookIDs, placed)
		e.metrics.BooksExcluded(len(res.Excluded))
	}()

	for _, g := range groups {
		view, err := e.reserveGroup(ctx, buyerID, typ, g)
		if err != nil {
			return res, err
		}
		if view == nil {
			e.log.Debug("seller group emptied at checkout",
				zap.Int64("buyer_id", buyerID), zap.Int64("seller_id", g.SellerID))
			continue
		}
		for _, id := range view.BookIDs {
			placed[id] = true
		}
		res.OrderIDs = append(res.OrderIDs, view.ID)
		e.metrics.OrderCreated()
		e.log.Info("order created",
			zap.Int64("order_id", view.ID),
			zap.Int64("buyer_id", buyerID),
			zap.Int64("seller_id", view.SellerID),
			zap.Int64s("book_ids", view.BookIDs))
		e.publish(ctx, *view, "", buyerID)
	}
	return res, nil
}

// reserveGroup runs the availability re-check and all writes for one seller
// group as a single unit. It returns nil when nothing in the group survived.
func (e *Engine) reserveGroup(ctx context.Context, buyerID int64, typ OrderType, g SellerGroup) (*OrderView, error) {
	var out *OrderView
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		locked, err := tx.LockBooks(ctx, g.BookIDs())
		if err != nil {
			return err
		}
		byID := make(map[int64]Book, len(locked))
		for _, b := range locked {
			byID[b.ID] = b
		}

		// urutan mengikuti cart, bukan urutan lock
		var avail []Book
		for _, b := range g.Books {
			cur, ok := byID[b.ID]
			if !ok || !eligible(cur, g.SellerID, buyerID, typ) {
				continue
			}
			avail = append(avail, cur)
		}
		if len(avail) == 0 {
			return nil
		}

		now := e.now()
		o := Order{
			BuyerID:   buyerID,
			SellerID:  g.SellerID,
			Type:      typ,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		o.ID, err = tx.CreateOrder(ctx, o)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(avail))
		for _, b := range avail {
			ids = append(ids, b.ID)
		}
		if err := tx.AddOrderItems(ctx, o.ID, ids); err != nil {
			return err
		}
		for _, b := range avail {
			if err := moveBook(ctx, tx, b, BookReserved); err != nil {
				return err
			}
		}
		out = &OrderView{Order: o, BookIDs: ids}
		return nil
	})
	if err != nil {
		return nil, storeErr("reserve group", err)
	}
	return out, nil
}

func eligible(b Book, sellerID, buyerID int64, typ OrderType) bool {
	if b.Status != BookActive || b.SellerID != sellerID || b.SellerID == buyerID {
		return false
	}
	return typ != TypeExchange || b.Exchangeable
}

func excludedIDs(ids []int64, placed map[int64]bool) []int64 {
	var out []int64
	seen := map[int64]bool{}
	for _, id := range ids {
		if placed[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CheckoutCart checks out the buyer's cart and clears it once every seller
// group has been processed, including books that were dropped. A store
// failure leaves the cart untouched so the buyer can retry.
func (e *Engine) CheckoutCart(ctx context.Context, buyerID int64, typ OrderType) (CheckoutResult, error) {
	if e.carts == nil {
		return CheckoutResult{}, errors.New("orders: engine has no cart source")
	}
	ids, err := e.carts.List(ctx, buyerID)
	if err != nil {
		return CheckoutResult{}, storeErr("cart list", err)
	}
	if len(ids) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	res, err := e.Checkout(ctx, buyerID, ids, typ)
	if err != nil && !errors.Is(err, ErrEmptyCart) {
		return res, err
	}
	if cerr := e.carts.Clear(ctx, buyerID); cerr != nil {
		// order sudah commit; sisa cart akan ter-exclude saat checkout berikutnya
		e.log.Warn("clear cart after checkout", zap.Int64("buyer_id", buyerID), zap.Error(cerr))
	}
	return res, err
}

// Fulfill applies a seller decision (completed or rejected) to a pending order.
func (e *Engine) Fulfill(ctx context.Context, sellerID, orderID int64, decision Status) (err error) {
	ctx, span := e.tracer.Start(ctx, "orders.Fulfill", trace.WithAttributes(
		attribute.Int64("seller.id", sellerID),
		attribute.Int64("order.id", orderID),
		attribute.String("order.decision", string(decision)),
	))
	defer e.observe(span, "fulfill", time.Now(), &err)

	if decision != StatusCompleted && decision != StatusRejected {
		return fmt.Errorf("%w: seller cannot set %q", ErrInvalidTransition, decision)
	}
	return e.transition(ctx, orderID, sellerID, decision, func(o Order) error {
		if o.SellerID != sellerID {
			return ErrNotOwner
		}
		if !CanTransition(o.Status, decision) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, decision)
		}
		return nil
	})
}

// Cancel withdraws a pending order on behalf of its buyer.
func (e *Engine) Cancel(ctx context.Context, buyerID, orderID int64) (err error) {
	ctx, span := e.tracer.Start(ctx, "orders.Cancel", trace.WithAttributes(
		attribute.Int64("buyer.id", buyerID),
		attribute.Int64("order.id", orderID),
	))
	defer e.observe(span, "cancel", time.Now(), &err)

	return e.transition(ctx, orderID, buyerID, StatusCancelled, func(o Order) error {
		if o.BuyerID != buyerID || !CanTransition(o.Status, StatusCancelled) {
			return fmt.Errorf("%w: order %d is %s", ErrNotCancellable, o.ID, o.Status)
		}
		return nil
	})
}

// transition moves a locked order to `to` and its books to the matching book
// status in one unit of work. check sees the order before anything is written.
func (e *Engine) transition(ctx context.Context, orderID, actorID int64, to Status, check func(Order) error) error {
	target, ok := BookStatusFor(to)
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	var (
		from Status
		view OrderView
	)
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := check(o); err != nil {
			return err
		}
		bookIDs, err := tx.OrderItemBookIDs(ctx, orderID)
		if err != nil {
			return err
		}
		books, err := tx.LockBooks(ctx, bookIDs)
		if err != nil {
			return err
		}
		for _, b := range books {
			if err := moveBook(ctx, tx, b, target); err != nil {
				return err
			}
		}
		if err := tx.SetOrderStatus(ctx, orderID, to); err != nil {
			return err
		}
		from = o.Status
		o.Status = to
		o.UpdatedAt = e.now()
		view = OrderView{Order: o, BookIDs: bookIDs}
		return nil
	})
	if err != nil {
		return storeErr("transition", err)
	}

	e.metrics.Transition(string(from), string(to))
	e.log.Info("order transition",
		zap.Int64("order_id", orderID),
		zap.Int64("actor_id", actorID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64s("book_ids", view.BookIDs))
	e.publish(ctx, view, from, actorID)
	return nil
}

func moveBook(ctx context.Context, tx Tx, b Book, to BookStatus) error {
	if !CanTransitionBook(b.Status, to) {
		return fmt.Errorf("%w: book %d %s -> %s", ErrInvalidTransition, b.ID, b.Status, to)
	}
	return tx.SetBookStatus(ctx, b.ID, to)
}

func (e *Engine) publish(ctx context.Context, v OrderView, from Status, actorID int64) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	env, err := NewEnvelope(e.producer, traceID, OrderEventPayload{
		OrderID:  v.ID,
		BuyerID:  v.BuyerID,
		SellerID: v.SellerID,
		Type:     v.Type,
		From:     from,
		Status:   v.Status,
		ActorID:  actorID,
		BookIDs:  v.BookIDs,
	})
	if err == nil {
		err = e.events.Publish(ctx, env)
	}
	if err != nil {
		e.log.Error("publish order event", zap.Int64("order_id", v.ID), zap.Error(err))
	}
}

func (e *Engine) observe(span trace.Span, op string, start time.Time, errp *error) {
	defer span.End()
	err := *errp
	result := "ok"
	switch {
	case err == nil:
	case IsRetryable(err):
		result = "store_error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error("engine store failure", zap.String("op", op), zap.Error(err))
	default:
		result = "rejected"
		span.SetAttributes(attribute.String("outcome", err.Error()))
		e.log.Debug("engine request rejected", zap.String("op", op), zap.Error(err))
	}
	e.metrics.ObserveOp(op, result, start)
}
