// Package sqlite is a single-node orders.Store on modernc.org/sqlite. The
// database handle is limited to one connection, so units of work are
// serialized and a locked book cannot be read by a competing checkout until
// the holder commits.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ orders.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "bookswap.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		seller_id            INTEGER NOT NULL,
		title                TEXT NOT NULL,
		price                TEXT NOT NULL DEFAULT '0',
		is_exchange_possible INTEGER NOT NULL DEFAULT 0,
		status               TEXT NOT NULL DEFAULT 'active'
		                     CHECK (status IN ('active', 'reserved', 'sold')),
		views_count          INTEGER NOT NULL DEFAULT 0,
		created_at           INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		buyer_id   INTEGER NOT NULL,
		seller_id  INTEGER NOT NULL,
		type       TEXT NOT NULL CHECK (type IN ('buy', 'exchange')),
		status     TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'cancelled', 'rejected')),
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL REFERENCES orders(id),
		book_id  INTEGER NOT NULL REFERENCES books(id),
		UNIQUE (order_id, book_id)
	)`,
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const bookColumns = `id, seller_id, title, price, is_exchange_possible, status, views_count, created_at`

const orderColumns = `id, buyer_id, seller_id, type, status, created_at, updated_at`

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

func toMicros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (orders.Book, error) {
	var (
		b                    orders.Book
		price, status        string
		exchange, createdAtU int64
	)
	if err := row.Scan(&b.ID, &b.SellerID, &b.Title, &price, &exchange, &status, &b.Views, &createdAtU); err != nil {
		return orders.Book{}, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return orders.Book{}, fmt.Errorf("book %d price: %w", b.ID, err)
	}
	b.Price = p
	b.Exchangeable = exchange != 0
	if b.Status, err = orders.ParseBookStatus(status); err != nil {
		return orders.Book{}, fmt.Errorf("book %d: %w", b.ID, err)
	}
	b.CreatedAt = fromMicros(createdAtU)
	return b, nil
}

func scanOrder(row rowScanner) (orders.Order, error) {
	var (
		o                    orders.Order
		typ, status          string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &typ, &status, &createdAt, &updatedAt); err != nil {
		return orders.Order{}, err
	}
	var err error
	if o.Type, err = orders.ParseOrderType(typ); err != nil {
		return orders.Order{}, fmt.Errorf("order %d: %w", o.ID, err)
	}
	if o.Status, err = orders.ParseStatus(status); err != nil {
		return orders.Order{}, fmt.Errorf("order %d: %w", o.ID, err)
	}
	o.CreatedAt = fromMicros(createdAt)
	o.UpdatedAt = fromMicros(updatedAt)
	return o, nil
}

func booksByIDs(ctx context.Context, q queryer, ids []int64) ([]orders.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []orders.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func itemsFor(ctx context.Context, q queryer, orderIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT order_id, book_id FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`) ORDER BY id`,
		int64Args(orderIDs)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var oid, bid int64
		if err := rows.Scan(&oid, &bid); err != nil {
			return nil, err
		}
		out[oid] = append(out[oid], bid)
	}
	return out, rows.Err()
}

func (s *Store) BooksByIDs(ctx context.Context, ids []int64) ([]orders.Book, error) {
	return booksByIDs(ctx, s.db, ids)
}

func (s *Store) GetBook(ctx context.Context, id int64) (orders.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.Book{}, orders.ErrBookNotFound
	}
	return b, err
}

func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE books SET views_count = views_count + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return orders.ErrBookNotFound
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (orders.OrderView, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return orders.OrderView{}, orders.ErrOrderNotFound
	}
	if err != nil {
		return orders.OrderView{}, err
	}
	items, err := itemsFor(ctx, s.db, []int64{id})
	if err != nil {
		return orders.OrderView{}, err
	}
	return orders.OrderView{Order: o, BookIDs: nonNil(items[id])}, nil
}

func (s *Store) ListOrdersByBuyer(ctx context.Context, buyerID int64) ([]orders.OrderView, error) {
	return s.listOrders(ctx, `buyer_id = ?`, buyerID)
}

func (s *Store) ListOrdersBySeller(ctx context.Context, sellerID int64) ([]orders.OrderView, error) {
	return s.listOrders(ctx, `seller_id = ?`, sellerID)
}

func (s *Store) listOrders(ctx context.Context, where string, arg int64) ([]orders.OrderView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY created_at DESC, id DESC`, arg)
	if err != nil {
		return nil, err
	}
	var (
		list []orders.Order
		ids  []int64
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		list = append(list, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// satu koneksi: rows harus ditutup sebelum query berikutnya
	_ = rows.Close()

	items, err := itemsFor(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	out := make([]orders.OrderView, 0, len(list))
	for _, o := range list {
		out = append(out, orders.OrderView{Order: o, BookIDs: nonNil(items[o.ID])})
	}
	return out, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&storeTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}
