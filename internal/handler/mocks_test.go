package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kart-commerce/internal/model"
	"kart-commerce/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, caller model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error) {
	args := m.Called(ctx, caller, req, idempotencyKey)
	return orderResult(args)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	args := m.Called(ctx, in)
	return orderResult(args)
}

func (m *MockOrderService) GetByID(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, caller, id)
	return orderResult(args)
}

func (m *MockOrderService) ListByUser(ctx context.Context, caller model.Identity, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, caller, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, caller model.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, caller, id, status)
	return orderResult(args)
}

func (m *MockOrderService) Cancel(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, caller, id)
	return orderResult(args)
}

func (m *MockOrderService) Delete(ctx context.Context, caller model.Identity, id uuid.UUID) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func orderResult(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, caller model.Identity, orderID uuid.UUID, currency string) (*model.PaymentResponse, error) {
	args := m.Called(ctx, caller, orderID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPaymentStatus(ctx context.Context, caller model.Identity, paymentIntentID string) (*model.PaymentStatusResponse, error) {
	args := m.Called(ctx, caller, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentStatusResponse), args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, caller model.Identity, orderID uuid.UUID, amount *decimal.Decimal) (*model.RefundResponse, error) {
	args := m.Called(ctx, caller, orderID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefundResponse), args.Error(1)
}

func (m *MockPaymentService) ClientConfig() payment.ClientConfig {
	args := m.Called()
	return args.Get(0).(payment.ClientConfig)
}

// MockWebhookService is a mock implementation of WebhookService.
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

var (
	customer = model.Identity{UserID: "user-1", Role: model.RoleCustomer}
	admin    = model.Identity{UserID: "admin-1", Role: model.RoleAdmin}
)

// asCaller returns req carrying id, as middleware.Identity would.
func asCaller(req *http.Request, id model.Identity) *http.Request {
	return req.WithContext(model.WithIdentity(req.Context(), id))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
