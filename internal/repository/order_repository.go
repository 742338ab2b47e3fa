package repository

import (
	"context"
	"errors"
	"fmt"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const orderColumns = `id, user_id, status, total_amount, discount_amount, currency, shipping_address,
	coupon_code, payment_intent_id, payment_status, stock_restored, idempotency_key, created_at, updated_at`

const idempotencyConstraint = "orders_user_idempotency_key"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db DB, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Status,
		order.TotalAmount,
		order.DiscountAmount,
		order.Currency,
		order.ShippingAddress,
		order.CouponCode,
		order.PaymentIntentID,
		order.PaymentStatus,
		order.StockRestored,
		order.IdempotencyKey,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyConstraint) {
			r.logger.Debug().Str("user_id", order.UserID).Msg("duplicate idempotency key")
			return model.ErrDuplicateOrder
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", TranslateError(err))
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created successfully")

	return nil
}

// CreateOrderLines inserts the order lines within the provided transaction.
func (r *orderRepository) CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_lines (id, order_id, product_id, variant_id, quantity, price_at_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query, line.ID, line.OrderID, line.ProductID, line.VariantID, line.Quantity, line.PriceAtOrder)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(lines); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", lines[i].OrderID.String()).
				Str("product_id", lines[i].ProductID).
				Msg("failed to create order line")
			return fmt.Errorf("failed to create order line: %w", TranslateError(err))
		}
	}

	r.logger.Debug().
		Int("count", len(lines)).
		Msg("order lines created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its lines.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.findOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves the order a user created with key.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error) {
	return r.findOne(ctx, r.db,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key)
}

// GetByPaymentIntent retrieves the order holding a payment intent.
func (r *orderRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	return r.findOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
}

// LockByID loads and row-locks an order with its lines.
func (r *orderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	return r.findOne(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

// LockByPaymentIntent loads and row-locks the order holding a payment intent.
func (r *orderRepository) LockByPaymentIntent(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*model.Order, error) {
	return r.findOne(ctx, tx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1 FOR UPDATE`, paymentIntentID)
}

// ListByUser lists a user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateState persists status, payment fields and the restoration flag.
func (r *orderRepository) UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_intent_id = $3, payment_status = $4, stock_restored = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Status,
		order.PaymentIntentID,
		order.PaymentStatus,
		order.StockRestored,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update order")
		return fmt.Errorf("failed to update order: %w", TranslateError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Msg("order updated")

	return nil
}

// DeleteOrder removes the lines and then the order.
func (r *orderRepository) DeleteOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order lines")
		return fmt.Errorf("failed to delete order lines: %w", TranslateError(err))
	}

	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", TranslateError(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Info().Str("order_id", id.String()).Msg("order deleted")
	return nil
}

// findOne loads a single order and its lines. Returns nil when no row matches.
func (r *orderRepository) findOne(ctx context.Context, q querier, query string, args ...any) (*model.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", TranslateError(err))
	}

	lines, err := r.loadLines(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) loadLines(ctx context.Context, q querier, orderID uuid.UUID) ([]model.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, quantity, price_at_order
		FROM order_lines
		WHERE order_id = $1
		ORDER BY product_id, variant_id NULLS FIRST
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order lines")
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var line model.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.VariantID, &line.Quantity, &line.PriceAtOrder); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.TotalAmount,
		&order.DiscountAmount,
		&order.Currency,
		&order.ShippingAddress,
		&order.CouponCode,
		&order.PaymentIntentID,
		&order.PaymentStatus,
		&order.StockRestored,
		&order.IdempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
