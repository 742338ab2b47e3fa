package payment

import (
	"context"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
)

// CreatePaymentInput describes a payment attempt. Amount is in the smallest
// currency unit.
type CreatePaymentInput struct {
	OrderID        uuid.UUID
	Amount         int64
	Currency       string
	UserID         string
	Description    string
	IdempotencyKey string
}

// PaymentIntent is the provider handle of a newly opened payment attempt.
type PaymentIntent struct {
	ProviderTransactionID string
	ClientSecret          string
	Status                model.PaymentStatus
}

// StatusResult is the provider view of a payment attempt.
type StatusResult struct {
	Status   model.PaymentStatus
	Amount   int64
	Currency string
}

// RefundInput describes a refund request. A nil Amount refunds the full
// payment; otherwise it is in the smallest currency unit.
type RefundInput struct {
	ProviderTransactionID string
	Amount                *int64
	IdempotencyKey        string
}

// Refund is the provider outcome of a refund request.
type Refund struct {
	RefundID string
	Status   model.RefundStatus
	Amount   int64
	Currency string
}

// ClientConfig is the public, client-side configuration of a provider.
type ClientConfig struct {
	Provider  string `json:"provider"`
	PublicKey string `json:"publicKey"`
}

// Gateway is the capability set every payment provider implements. All
// methods fail with a model.Error of kind KindPaymentProvider.
type Gateway interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentIntent, error)
	GetPaymentStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error)
	RefundPayment(ctx context.Context, input RefundInput) (*Refund, error)
	GetClientConfig() ClientConfig
}
