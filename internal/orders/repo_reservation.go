package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type pgTx struct{ tx pgx.Tx }

// LockBooks: lock baris buku (FOR UPDATE) urut id supaya dua transaksi tidak saling deadlock.
func (t *pgTx) LockBooks(ctx context.Context, ids []int64) ([]Book, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

func (t *pgTx) SetBookStatus(ctx context.Context, id int64, status BookStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE books SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("set status of book %d: %w", id, ErrBookNotFound)
	}
	return nil
}

func (t *pgTx) CreateBook(ctx context.Context, b Book) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO books(seller_id, title, price, is_exchange_possible, status, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING id`,
		b.SellerID, b.Title, b.Price.String(), b.Exchangeable, string(b.Status), b.CreatedAt,
	).Scan(&id)
	return id, err
}

func (t *pgTx) UpdateBook(ctx context.Context, b Book) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE books SET title=$2, price=$3::numeric, is_exchange_possible=$4
		WHERE id=$1`,
		b.ID, b.Title, b.Price.String(), b.Exchangeable)
	return err
}

func (t *pgTx) CreateOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(buyer_id, seller_id, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.BuyerID, o.SellerID, string(o.Type), string(o.Status), o.CreatedAt, o.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (t *pgTx) AddOrderItems(ctx context.Context, orderID int64, bookIDs []int64) error {
	for _, bid := range bookIDs {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, book_id) VALUES ($1, $2)`,
			orderID, bid); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	var (
		o           Order
		typ, status string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, buyer_id, seller_id, type, status, created_at, updated_at
		FROM orders WHERE id=$1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.BuyerID, &o.SellerID, &typ, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return decodeOrder(o, typ, status)
}

func (t *pgTx) SetOrderStatus(ctx context.Context, id int64, status Status) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) OrderItemBookIDs(ctx context.Context, orderID int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `SELECT book_id FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
