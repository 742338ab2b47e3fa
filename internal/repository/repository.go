package repository

import (
	"context"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetAll retrieves all products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product with its variants. Returns nil when absent.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetStockUnits reads the current price and availability of each requested
	// unit without locking. Missing units yield ErrProductNotFound.
	GetStockUnits(ctx context.Context, items []model.StockItem) ([]model.StockUnit, error)
}

// InventoryLedger mutates stock units inside the caller's transaction.
type InventoryLedger interface {
	// Reserve locks every unit in ascending identity order, checks availability
	// and decrements. Fails with an insufficient stock error naming the unit.
	Reserve(ctx context.Context, tx pgx.Tx, items []model.StockItem) error

	// Restore increments every unit in ascending identity order.
	Restore(ctx context.Context, tx pgx.Tx, items []model.StockItem) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderLines inserts the order lines within the provided transaction.
	CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error

	// GetByID retrieves an order with its lines. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIdempotencyKey retrieves the order a user created with key.
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error)

	// GetByPaymentIntent retrieves the order holding a payment intent.
	GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*model.Order, error)

	// ListByUser lists a user's orders, newest first, without lines.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)

	// LockByID loads and row-locks an order with its lines. Returns nil when absent.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// LockByPaymentIntent loads and row-locks the order holding a payment intent.
	LockByPaymentIntent(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*model.Order, error)

	// UpdateState persists status, payment fields and the restoration flag.
	UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// DeleteOrder removes the lines and then the order.
	DeleteOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// PaymentRepository stores refund attempts and processed provider events.
type PaymentRepository interface {
	// CreateRefund records a refund attempt.
	CreateRefund(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error

	// UpdateRefundStatus sets the provider status of a recorded refund.
	// Returns false when the refund is unknown.
	UpdateRefundStatus(ctx context.Context, tx pgx.Tx, refundID string, status model.RefundStatus) (bool, error)

	// ListRefunds returns the refunds recorded for an order.
	ListRefunds(ctx context.Context, orderID uuid.UUID) ([]model.RefundRecord, error)

	// RecordEvent marks a provider event as processed. Returns false when the
	// event was already recorded.
	RecordEvent(ctx context.Context, tx pgx.Tx, eventID, eventType, paymentIntentID string) (bool, error)
}
