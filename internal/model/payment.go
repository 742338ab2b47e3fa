package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the provider-reported state of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	PaymentStatusProcessing     PaymentStatus = "processing"
	PaymentStatusSucceeded      PaymentStatus = "succeeded"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusCanceled       PaymentStatus = "canceled"
	PaymentStatusRefunded       PaymentStatus = "refunded"
)

// IsTerminal reports whether the payment attempt has settled.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed || s == PaymentStatusCanceled
}

// RefundStatus is the provider-reported state of a refund.
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
	RefundStatusCanceled  RefundStatus = "canceled"
)

// RefundRecord is one refund attempt against a paid order.
type RefundRecord struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	RefundID  string          `json:"refundId" db:"refund_id"`
	OrderID   uuid.UUID       `json:"orderId" db:"order_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Currency  string          `json:"currency" db:"currency"`
	Status    RefundStatus    `json:"status" db:"status"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// PaymentRequest is the payload for starting a payment.
type PaymentRequest struct {
	Currency string `json:"currency,omitempty"`
}

// PaymentResponse is returned when a payment attempt is opened.
type PaymentResponse struct {
	ClientSecret string      `json:"clientSecret"`
	OrderID      uuid.UUID   `json:"orderId"`
	OrderStatus  OrderStatus `json:"orderStatus"`
}

// PaymentStatusResponse reports the provider view of a payment attempt.
type PaymentStatusResponse struct {
	Status   PaymentStatus `json:"status"`
	Amount   int64         `json:"amount"`
	Currency string        `json:"currency"`
}

// RefundRequest is the payload for refunding an order. A nil Amount refunds
// the full order total.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// RefundResponse is returned after a refund attempt.
type RefundResponse struct {
	RefundID       string       `json:"refundId"`
	Status         RefundStatus `json:"status"`
	OrderID        uuid.UUID    `json:"orderId"`
	NewOrderStatus OrderStatus  `json:"newOrderStatus"`
}
