package repository

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	category TEXT NOT NULL,
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS product_variants (
	id TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	price NUMERIC(12,2) CHECK (price >= 0),
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_product_variants_product_id ON product_variants(product_id);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL,
	total_amount NUMERIC(12,2) NOT NULL CHECK (total_amount >= 0),
	discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	currency TEXT NOT NULL,
	shipping_address TEXT NOT NULL,
	coupon_code TEXT,
	payment_intent_id TEXT UNIQUE,
	payment_status TEXT NOT NULL DEFAULT '',
	stock_restored BOOLEAN NOT NULL DEFAULT FALSE,
	idempotency_key TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT orders_user_idempotency_key UNIQUE (user_id, idempotency_key)
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS order_lines (
	id UUID PRIMARY KEY,
	order_id UUID NOT NULL REFERENCES orders(id),
	product_id TEXT NOT NULL REFERENCES products(id),
	variant_id TEXT REFERENCES product_variants(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	price_at_order NUMERIC(12,2) NOT NULL CHECK (price_at_order >= 0)
);

CREATE INDEX IF NOT EXISTS idx_order_lines_order_id ON order_lines(order_id);

CREATE TABLE IF NOT EXISTS refunds (
	id UUID PRIMARY KEY,
	refund_id TEXT NOT NULL UNIQUE,
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	currency TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS webhook_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	payment_intent_id TEXT,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables used by the repositories.
func Migrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
