package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/orders"
)

// storeTx runs on the store's only connection, so rows read here stay
// exclusive until commit.
type storeTx struct{ tx *sql.Tx }

func (t *storeTx) LockBooks(ctx context.Context, ids []int64) ([]orders.Book, error) {
	return booksByIDs(ctx, t.tx, ids)
}

func (t *storeTx) SetBookStatus(ctx context.Context, id int64, status orders.BookStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE books SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return orders.ErrBookNotFound
	}
	return nil
}

func (t *storeTx) CreateBook(ctx context.Context, b orders.Book) (int64, error) {
	exchange := 0
	if b.Exchangeable {
		exchange = 1
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO books(seller_id, title, price, is_exchange_possible, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.SellerID, b.Title, b.Price.String(), exchange, string(b.Status), toMicros(b.CreatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *storeTx) UpdateBook(ctx context.Context, b orders.Book) error {
	exchange := 0
	if b.Exchangeable {
		exchange = 1
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE books SET title = ?, price = ?, is_exchange_possible = ? WHERE id = ?`,
		b.Title, b.Price.String(), exchange, b.ID)
	return err
}

func (t *storeTx) CreateOrder(ctx context.Context, o orders.Order) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders(buyer_id, seller_id, type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.BuyerID, o.SellerID, string(o.Type), string(o.Status), toMicros(o.CreatedAt), toMicros(o.UpdatedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *storeTx) AddOrderItems(ctx context.Context, orderID int64, bookIDs []int64) error {
	for _, bid := range bookIDs {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO order_items(order_id, book_id) VALUES (?, ?)`, orderID, bid); err != nil {
			return err
		}
	}
	return nil
}

func (t *storeTx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *storeTx) SetOrderStatus(ctx context.Context, id int64, status orders.Status) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMicros(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (t *storeTx) OrderItemBookIDs(ctx context.Context, orderID int64) ([]int64, error) {
	items, err := itemsFor(ctx, t.tx, []int64{orderID})
	if err != nil {
		return nil, err
	}
	return items[orderID], nil
}
