package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusFailed        OrderStatus = "failed"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusRefunded      OrderStatus = "refunded"
	OrderStatusPendingRefund OrderStatus = "pending_refund"
	OrderStatusRefundFailed  OrderStatus = "refund_failed"
)

// orderTransitions lists the edges of the order state machine.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:    {OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled},
	OrderStatusFailed:        {OrderStatusPending, OrderStatusCancelled},
	OrderStatusCompleted:     {OrderStatusPendingRefund, OrderStatusRefunded, OrderStatusRefundFailed},
	OrderStatusPendingRefund: {OrderStatusRefunded, OrderStatusRefundFailed},
	OrderStatusRefundFailed:  {OrderStatusPendingRefund},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusFailed,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusPendingRefund, OrderStatusRefundFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the payment flow of the order has settled.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded, OrderStatusRefundFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is adjacent to s in the state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering s returns the reserved stock.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Order represents a customer order. TotalAmount is fixed at creation time.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          string          `json:"userId" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount" db:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	Currency        string          `json:"currency" db:"currency"`
	ShippingAddress string          `json:"shippingAddress" db:"shipping_address"`
	CouponCode      *string         `json:"couponCode,omitempty" db:"coupon_code"`
	PaymentIntentID *string         `json:"paymentIntentId,omitempty" db:"payment_intent_id"`
	PaymentStatus   string          `json:"paymentStatus,omitempty" db:"payment_status"`
	StockRestored   bool            `json:"-" db:"stock_restored"`
	IdempotencyKey  *string         `json:"-" db:"idempotency_key"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Lines           []OrderLine     `json:"lines,omitempty"`
}

// StockItems returns the stock units and quantities held by the order lines.
func (o *Order) StockItems() []StockItem {
	items := make([]StockItem, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = StockItem{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		}
	}
	return items
}

// ProductIDs returns the distinct product IDs referenced by the order lines.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	ids := make([]string, 0, len(o.Lines))
	for _, line := range o.Lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

// OrderLine represents a line item in an order. PriceAtOrder is the unit price
// snapshot taken when the order was placed.
type OrderLine struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	OrderID      uuid.UUID       `json:"-" db:"order_id"`
	ProductID    string          `json:"productId" db:"product_id"`
	VariantID    *string         `json:"variantId,omitempty" db:"variant_id"`
	Quantity     int             `json:"quantity" db:"quantity"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder" db:"price_at_order"`
}

// Subtotal returns quantity × priceAtOrder.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtOrder.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewOrder is the input of order creation. TotalAmount is final: any discount
// has already been subtracted by the caller.
type NewOrder struct {
	UserID          string
	TotalAmount     decimal.Decimal
	DiscountAmount  decimal.Decimal
	Currency        string
	ShippingAddress string
	CouponCode      *string
	IdempotencyKey  *string
	Lines           []NewOrderLine
}

// NewOrderLine is a priced line of a NewOrder.
type NewOrderLine struct {
	ProductID    string
	VariantID    *string
	Quantity     int
	PriceAtOrder decimal.Decimal
}

// LinesSubtotal sums quantity × price over the lines.
func LinesSubtotal(lines []NewOrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PriceAtOrder.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	CouponCode      *string            `json:"couponCode,omitempty"`
	ShippingAddress string             `json:"shippingAddress"`
	Currency        string             `json:"currency,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

// StatusUpdateRequest is the payload of an administrative status change.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}
