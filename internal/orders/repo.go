package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const bookColumns = `id, seller_id, title, price::text, is_exchange_possible, status, views_count, created_at`

const orderViewSelect = `
	SELECT o.id, o.buyer_id, o.seller_id, o.type, o.status, o.created_at, o.updated_at,
	       COALESCE(array_agg(oi.book_id ORDER BY oi.id) FILTER (WHERE oi.book_id IS NOT NULL), '{}')
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var (
		b      Book
		price  string
		status string
	)
	if err := row.Scan(&b.ID, &b.SellerID, &b.Title, &price, &b.Exchangeable, &status, &b.Views, &b.CreatedAt); err != nil {
		return Book{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Book{}, fmt.Errorf("book %d price: %w", b.ID, err)
	}
	b.Price = p
	if b.Status, err = ParseBookStatus(status); err != nil {
		return Book{}, fmt.Errorf("book %d: %w", b.ID, err)
	}
	return b, nil
}

func scanOrderView(row rowScanner) (OrderView, error) {
	var (
		v           OrderView
		typ, status string
	)
	if err := row.Scan(&v.ID, &v.BuyerID, &v.SellerID, &typ, &status, &v.CreatedAt, &v.UpdatedAt, &v.BookIDs); err != nil {
		return OrderView{}, err
	}
	var err error
	if v.Order, err = decodeOrder(v.Order, typ, status); err != nil {
		return OrderView{}, err
	}
	return v, nil
}

func decodeOrder(o Order, typ, status string) (Order, error) {
	var err error
	if o.Type, err = ParseOrderType(typ); err != nil {
		return Order{}, fmt.Errorf("order %d: %w", o.ID, err)
	}
	if o.Status, err = ParseStatus(status); err != nil {
		return Order{}, fmt.Errorf("order %d: %w", o.ID, err)
	}
	return o, nil
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
	defer rows.Close()
	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func collectOrderViews(rows pgx.Rows) ([]OrderView, error) {
	defer rows.Close()
	var out []OrderView
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) BooksByIDs(ctx context.Context, ids []int64) ([]Book, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collectBooks(rows)
}

func (r *Repo) GetBook(ctx context.Context, id int64) (Book, error) {
	b, err := scanBook(r.DB.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	return b, err
}

func (r *Repo) IncrementViews(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE books SET views_count = views_count + 1 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (OrderView, error) {
	v, err := scanOrderView(r.DB.QueryRow(ctx, orderViewSelect+` WHERE o.id=$1 GROUP BY o.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderView{}, ErrOrderNotFound
	}
	return v, err
}

func (r *Repo) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, orderViewSelect+`
		WHERE o.buyer_id=$1 GROUP BY o.id ORDER BY o.created_at DESC, o.id DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	return collectOrderViews(rows)
}

func (r *Repo) ListOrdersBySeller(ctx context.Context, sellerID int64) ([]OrderView, error) {
	rows, err := r.DB.Query(ctx, orderViewSelect+`
		WHERE o.seller_id=$1 GROUP BY o.id ORDER BY o.created_at DESC, o.id DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	return collectOrderViews(rows)
}

// WithinTx: satu transaksi Postgres; rollback via defer kalau fn atau commit gagal.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
