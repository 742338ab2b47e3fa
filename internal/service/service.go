package service

import (
	"context"
	"time"

	"kart-commerce/internal/cache"
	"kart-commerce/internal/coupon"
	"kart-commerce/internal/model"
	"kart-commerce/internal/notify"
	"kart-commerce/internal/payment"
	"kart-commerce/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService defines catalogue read operations.
type ProductService interface {
	// GetAll retrieves products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product with its variants.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// OrderService defines the order aggregate operations.
type OrderService interface {
	// Checkout prices the requested items from the catalogue, applies the
	// promo code and creates the order. A repeated idempotency key returns
	// the order created first.
	Checkout(ctx context.Context, caller model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error)

	// CreateOrder reserves stock and persists a pending order atomically.
	CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error)

	// GetByID retrieves an order visible to the caller.
	GetByID(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error)

	// ListByUser lists the caller's orders.
	ListByUser(ctx context.Context, caller model.Identity, limit, offset int) ([]model.Order, error)

	// UpdateStatus moves an order along one edge of the state machine. Admin only.
	UpdateStatus(ctx context.Context, caller model.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// Cancel cancels an unpaid order and releases its stock.
	Cancel(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error)

	// Delete removes an order and its lines without releasing stock. Admin only.
	Delete(ctx context.Context, caller model.Identity, id uuid.UUID) error
}

// PaymentService orchestrates payment attempts and refunds.
type PaymentService interface {
	// InitiatePayment opens a payment attempt for a pending order.
	InitiatePayment(ctx context.Context, caller model.Identity, orderID uuid.UUID, currency string) (*model.PaymentResponse, error)

	// GetPaymentStatus reads the provider status and syncs settled outcomes
	// onto the order on a best-effort basis.
	GetPaymentStatus(ctx context.Context, caller model.Identity, paymentIntentID string) (*model.PaymentStatusResponse, error)

	// Refund refunds amount, or the order total when amount is nil.
	Refund(ctx context.Context, caller model.Identity, orderID uuid.UUID, amount *decimal.Decimal) (*model.RefundResponse, error)

	// ClientConfig returns the provider's public configuration.
	ClientConfig() payment.ClientConfig
}

// WebhookService reconciles asynchronous provider events.
type WebhookService interface {
	// HandleProviderEvent verifies and applies one provider event. Once the
	// signature holds, events that cannot be applied succeed without side
	// effects.
	HandleProviderEvent(ctx context.Context, payload []byte, signature string) error
}

// Dependencies bundles the collaborators of the order workflow services.
type Dependencies struct {
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Payments  repository.PaymentRepository
	Ledger    repository.InventoryLedger
	Gateway   payment.Gateway
	Evaluator coupon.Evaluator
	Cache     cache.Cache
	Notifier  notify.Notifier
}

// Options holds the payment settings of the workflow services.
type Options struct {
	DefaultCurrency  string
	GatewayTimeout   time.Duration
	WebhookSecret    string
	WebhookTolerance time.Duration
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func normalisePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
