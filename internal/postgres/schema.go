package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		id                   BIGSERIAL PRIMARY KEY,
		seller_id            BIGINT NOT NULL,
		title                TEXT NOT NULL,
		price                NUMERIC(10,2) NOT NULL DEFAULT 0,
		is_exchange_possible BOOLEAN NOT NULL DEFAULT FALSE,
		status               TEXT NOT NULL DEFAULT 'active'
		                     CHECK (status IN ('active', 'reserved', 'sold')),
		views_count          BIGINT NOT NULL DEFAULT 0,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_seller ON books(seller_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id         BIGSERIAL PRIMARY KEY,
		buyer_id   BIGINT NOT NULL,
		seller_id  BIGINT NOT NULL,
		type       TEXT NOT NULL DEFAULT 'buy' CHECK (type IN ('buy', 'exchange')),
		status     TEXT NOT NULL DEFAULT 'pending'
		           CHECK (status IN ('pending', 'completed', 'cancelled', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_buyer_created ON orders(buyer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_seller_created ON orders(seller_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id       BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		book_id  BIGINT NOT NULL REFERENCES books(id),
		UNIQUE (order_id, book_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_book ON order_items(book_id)`,
}
