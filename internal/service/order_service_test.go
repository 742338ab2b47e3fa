package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	customer = model.Identity{UserID: "user-1", Role: model.RoleCustomer}
	stranger = model.Identity{UserID: "user-2", Role: model.RoleCustomer}
	admin    = model.Identity{UserID: "admin-1", Role: model.RoleAdmin}
)

func newOrderService(f *fixture) OrderService {
	return NewOrderService(f.deps(), Options{DefaultCurrency: "usd"}, zerolog.Nop())
}

// newTestOrder returns a two-line order owned by customer.
func newTestOrder(status model.OrderStatus) *model.Order {
	id := uuid.New()
	variant := "V-RED"
	return &model.Order{
		ID:              id,
		UserID:          customer.UserID,
		Status:          status,
		TotalAmount:     decimal.RequireFromString("25.50"),
		Currency:        "USD",
		ShippingAddress: "1 Main St",
		CreatedAt:       time.Now().Add(-time.Hour),
		UpdatedAt:       time.Now().Add(-time.Hour),
		Lines: []model.OrderLine{
			{ID: uuid.New(), OrderID: id, ProductID: "P001", Quantity: 2, PriceAtOrder: decimal.RequireFromString("10.00")},
			{ID: uuid.New(), OrderID: id, ProductID: "P002", VariantID: &variant, Quantity: 1, PriceAtOrder: decimal.RequireFromString("5.50")},
		},
	}
}

func decimalEq(want string) any {
	expected := decimal.RequireFromString(want)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func checkoutRequest(coupon *string) *model.OrderRequest {
	variant := "V-RED"
	return &model.OrderRequest{
		CouponCode:      coupon,
		ShippingAddress: "1 Main St",
		Items: []model.OrderItemRequest{
			{ProductID: "P001", Quantity: 2},
			{ProductID: "P002", VariantID: &variant, Quantity: 1},
		},
	}
}

func checkoutUnits() []model.StockUnit {
	variant := "V-RED"
	return []model.StockUnit{
		{ProductID: "P001", Available: 10, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: "P002", VariantID: &variant, Available: 3, UnitPrice: decimal.RequireFromString("5.50")},
	}
}

func TestOrderService_Checkout_Success(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		coupon       *string
		setupCoupon  func(m *MockEvaluator)
		wantTotal    string
		wantDiscount string
	}{
		{
			name:         "without coupon",
			setupCoupon:  func(m *MockEvaluator) {},
			wantTotal:    "25.50",
			wantDiscount: "0",
		},
		{
			name:   "with coupon",
			coupon: strPtr("HAPPYHRS"),
			setupCoupon: func(m *MockEvaluator) {
				m.On("Discount", mock.Anything, "HAPPYHRS", decimalEq("25.50"), "usd").
					Return(decimal.RequireFromString("2.55"), nil)
			},
			wantTotal:    "22.95",
			wantDiscount: "2.55",
		},
		{
			name:   "discount larger than subtotal clamps to zero",
			coupon: strPtr("FREEBIES1"),
			setupCoupon: func(m *MockEvaluator) {
				m.On("Discount", mock.Anything, "FREEBIES1", mock.Anything, mock.Anything).
					Return(decimal.RequireFromString("30.00"), nil)
			},
			wantTotal:    "0",
			wantDiscount: "30.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)

			f.products.On("GetStockUnits", mock.Anything, mock.MatchedBy(func(items []model.StockItem) bool {
				return len(items) == 2 && items[0].ProductID == "P001" && items[1].VariantKey() == "V-RED"
			})).Return(checkoutUnits(), nil)
			tt.setupCoupon(f.coupons)
			f.expectCommit()
			f.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.AnythingOfType("*model.Order")).Return(nil)
			f.ledger.On("Reserve", mock.Anything, mock.Anything, mock.MatchedBy(func(items []model.StockItem) bool {
				return len(items) == 2 && items[0].Quantity == 2 && items[1].Quantity == 1
			})).Return(nil)
			f.orders.On("CreateOrderLines", mock.Anything, mock.Anything, mock.AnythingOfType("[]model.OrderLine")).Return(nil)

			order, err := svc.Checkout(ctx, customer, checkoutRequest(tt.coupon), "")

			require.NoError(t, err)
			require.NotNil(t, order)
			assert.Equal(t, customer.UserID, order.UserID)
			assert.Equal(t, model.OrderStatusPending, order.Status)
			assert.Equal(t, "USD", order.Currency)
			assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString(tt.wantTotal)), "total %s", order.TotalAmount)
			assert.True(t, order.DiscountAmount.Equal(decimal.RequireFromString(tt.wantDiscount)), "discount %s", order.DiscountAmount)
			require.Len(t, order.Lines, 2)
			assert.True(t, order.Lines[1].PriceAtOrder.Equal(decimal.RequireFromString("5.50")))
			for _, line := range order.Lines {
				assert.Equal(t, order.ID, line.OrderID)
			}
			f.assertExpectations(t)
		})
	}
}

func TestOrderService_Checkout_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		caller   model.Identity
		req      *model.OrderRequest
		wantCode string
	}{
		{
			name:     "missing identity",
			caller:   model.Identity{},
			req:      checkoutRequest(nil),
			wantCode: model.ErrCodeUnauthorised,
		},
		{
			name:     "nil request",
			caller:   customer,
			wantCode: model.ErrCodeEmptyOrder,
		},
		{
			name:     "no items",
			caller:   customer,
			req:      &model.OrderRequest{ShippingAddress: "1 Main St"},
			wantCode: model.ErrCodeEmptyOrder,
		},
		{
			name:   "missing shipping address",
			caller: customer,
			req: &model.OrderRequest{
				ShippingAddress: "  ",
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: 1}},
			},
			wantCode: model.ErrCodeMissingField,
		},
		{
			name:   "missing product id",
			caller: customer,
			req: &model.OrderRequest{
				ShippingAddress: "1 Main St",
				Items:           []model.OrderItemRequest{{Quantity: 1}},
			},
			wantCode: model.ErrCodeMissingField,
		},
		{
			name:   "zero quantity",
			caller: customer,
			req: &model.OrderRequest{
				ShippingAddress: "1 Main St",
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: 0}},
			},
			wantCode: model.ErrCodeInvalidQuantity,
		},
		{
			name:   "negative quantity",
			caller: customer,
			req: &model.OrderRequest{
				ShippingAddress: "1 Main St",
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: -3}},
			},
			wantCode: model.ErrCodeInvalidQuantity,
		},
		{
			name:   "malformed currency",
			caller: customer,
			req: &model.OrderRequest{
				ShippingAddress: "1 Main St",
				Currency:        "EURO",
				Items:           []model.OrderItemRequest{{ProductID: "P001", Quantity: 1}},
			},
			wantCode: model.ErrCodeCurrencyMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)

			order, err := svc.Checkout(ctx, tt.caller, tt.req, "")

			require.Error(t, err)
			assert.Nil(t, order)
			var domainErr *model.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.wantCode, domainErr.Code)
			f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
			f.products.AssertNotCalled(t, "GetStockUnits", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_MissingIdentityIsUnauthorised(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(svc OrderService) error
	}{
		{
			name: "checkout",
			call: func(svc OrderService) error {
				_, err := svc.Checkout(ctx, model.Identity{Role: model.RoleCustomer}, checkoutRequest(nil), "")
				return err
			},
		},
		{
			name: "list orders",
			call: func(svc OrderService) error {
				_, err := svc.ListByUser(ctx, model.Identity{}, 10, 0)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)

			err := tt.call(svc)

			assert.ErrorIs(t, err, model.ErrUnauthenticated)
			var domainErr *model.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusUnauthorized, domainErr.StatusCode())
			f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
			f.orders.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_Checkout_InvalidCoupon(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newOrderService(f)

	f.products.On("GetStockUnits", mock.Anything, mock.Anything).Return(checkoutUnits(), nil)
	f.coupons.On("Discount", mock.Anything, "BADCODE1", mock.Anything, mock.Anything).Return(decimal.Zero, model.ErrInvalidPromoCode)

	order, err := svc.Checkout(ctx, customer, checkoutRequest(strPtr("BADCODE1")), "")

	assert.ErrorIs(t, err, model.ErrInvalidPromoCode)
	assert.Nil(t, order)
	f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_Checkout_CouponWithoutEvaluator(t *testing.T) {
	f := newFixture()
	deps := f.deps()
	deps.Evaluator = nil
	svc := NewOrderService(deps, Options{DefaultCurrency: "USD"}, zerolog.Nop())

	f.products.On("GetStockUnits", mock.Anything, mock.Anything).Return(checkoutUnits(), nil)

	_, err := svc.Checkout(context.Background(), customer, checkoutRequest(strPtr("HAPPYHRS")), "")

	assert.ErrorIs(t, err, model.ErrInvalidPromoCode)
}

func TestOrderService_Checkout_ProductNotFound(t *testing.T) {
	f := newFixture()
	svc := newOrderService(f)

	f.products.On("GetStockUnits", mock.Anything, mock.Anything).Return(nil, model.ErrProductNotFound)

	_, err := svc.Checkout(context.Background(), customer, checkoutRequest(nil), "")

	assert.ErrorIs(t, err, model.ErrProductNotFound)
	f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_Checkout_IdempotencyReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newOrderService(f)
	existing := newTestOrder(model.OrderStatusPending)

	f.orders.On("GetByIdempotencyKey", mock.Anything, customer.UserID, "key-1").Return(existing, nil)

	order, err := svc.Checkout(ctx, customer, checkoutRequest(nil), " key-1 ")

	require.NoError(t, err)
	assert.Equal(t, existing.ID, order.ID)
	f.products.AssertNotCalled(t, "GetStockUnits", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
}

func TestOrderService_Checkout_ConcurrentDuplicateKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newOrderService(f)
	winner := newTestOrder(model.OrderStatusPending)

	f.orders.On("GetByIdempotencyKey", mock.Anything, customer.UserID, "key-1").Return(nil, nil).Once()
	f.products.On("GetStockUnits", mock.Anything, mock.Anything).Return(checkoutUnits(), nil)
	f.expectRollback()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.IdempotencyKey != nil && *o.IdempotencyKey == "key-1"
	})).Return(model.ErrDuplicateOrder)
	f.orders.On("GetByIdempotencyKey", mock.Anything, customer.UserID, "key-1").Return(winner, nil).Once()

	order, err := svc.Checkout(ctx, customer, checkoutRequest(nil), "key-1")

	require.NoError(t, err)
	assert.Equal(t, winner.ID, order.ID)
	f.ledger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_CreateOrder_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newOrderService(f)

	shortage := model.NewInsufficientStockError("P001", nil, 1, 2)
	f.expectRollback()
	f.orders.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ledger.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(shortage)

	order, err := svc.CreateOrder(ctx, model.NewOrder{
		UserID:      customer.UserID,
		TotalAmount: decimal.RequireFromString("20.00"),
		Currency:    "USD",
		Lines: []model.NewOrderLine{
			{ProductID: "P001", Quantity: 2, PriceAtOrder: decimal.RequireFromString("10.00")},
		},
	})

	require.Error(t, err)
	assert.Nil(t, order)
	var domainErr *model.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, model.ErrCodeInsufficientStock, domainErr.Code)
	f.orders.AssertNotCalled(t, "CreateOrderLines", mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      model.NewOrder
		wantErr error
	}{
		{
			name:    "no lines",
			in:      model.NewOrder{UserID: "user-1"},
			wantErr: model.ErrEmptyOrder,
		},
		{
			name: "zero quantity line",
			in: model.NewOrder{
				UserID: "user-1",
				Lines:  []model.NewOrderLine{{ProductID: "P001", Quantity: 0}},
			},
			wantErr: model.ErrInvalidQuantity,
		},
		{
			name: "negative total",
			in: model.NewOrder{
				UserID:      "user-1",
				TotalAmount: decimal.NewFromInt(-1),
				Lines:       []model.NewOrderLine{{ProductID: "P001", Quantity: 1}},
			},
			wantErr: model.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)

			_, err := svc.CreateOrder(context.Background(), tt.in)

			assert.ErrorIs(t, err, tt.wantErr)
			f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()
	stored := newTestOrder(model.OrderStatusPending)

	tests := []struct {
		name       string
		caller     model.Identity
		setupMocks func(m *MockOrderRepository)
		wantErr    error
	}{
		{
			name:   "owner",
			caller: customer,
			setupMocks: func(m *MockOrderRepository) {
				m.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
			},
		},
		{
			name:   "admin",
			caller: admin,
			setupMocks: func(m *MockOrderRepository) {
				m.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
			},
		},
		{
			name:   "other user sees not found",
			caller: stranger,
			setupMocks: func(m *MockOrderRepository) {
				m.On("GetByID", mock.Anything, stored.ID).Return(stored, nil)
			},
			wantErr: model.ErrOrderNotFound,
		},
		{
			name:   "missing order",
			caller: customer,
			setupMocks: func(m *MockOrderRepository) {
				m.On("GetByID", mock.Anything, stored.ID).Return(nil, nil)
			},
			wantErr: model.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f.orders)
			svc := newOrderService(f)

			order, err := svc.GetByID(ctx, tt.caller, stored.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, stored.ID, order.ID)
		})
	}
}

func TestOrderService_GetByID_RepositoryError(t *testing.T) {
	f := newFixture()
	svc := newOrderService(f)
	id := uuid.New()
	f.orders.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection reset"))

	_, err := svc.GetByID(context.Background(), customer, id)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get order")
}

func TestOrderService_ListByUser_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", limit: 0, offset: -5, wantLimit: 10, wantOffset: 0},
		{name: "capped", limit: 500, offset: 20, wantLimit: 100, wantOffset: 20},
		{name: "as given", limit: 25, offset: 50, wantLimit: 25, wantOffset: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)
			f.orders.On("ListByUser", mock.Anything, customer.UserID, tt.wantLimit, tt.wantOffset).
				Return([]model.Order{*newTestOrder(model.OrderStatusPending)}, nil)

			orders, err := svc.ListByUser(context.Background(), customer, tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Len(t, orders, 1)
			f.orders.AssertExpectations(t)
		})
	}
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		caller       model.Identity
		from         model.OrderStatus
		restored     bool
		to           model.OrderStatus
		wantErr      string
		wantRestore  bool
		wantNotified []model.OrderStatus
	}{
		{
			name:    "customer rejected",
			caller:  customer,
			from:    model.OrderStatusPending,
			to:      model.OrderStatusProcessing,
			wantErr: model.ErrCodeForbidden,
		},
		{
			name:    "unknown status",
			caller:  admin,
			from:    model.OrderStatusPending,
			to:      model.OrderStatus("shipped"),
			wantErr: model.ErrCodeInvalidTransition,
		},
		{
			name:    "non adjacent status",
			caller:  admin,
			from:    model.OrderStatusCompleted,
			to:      model.OrderStatusPending,
			wantErr: model.ErrCodeInvalidTransition,
		},
		{
			name:   "pending to processing",
			caller: admin,
			from:   model.OrderStatusPending,
			to:     model.OrderStatusProcessing,
		},
		{
			name:   "failed reopened",
			caller: admin,
			from:   model.OrderStatusFailed,
			to:     model.OrderStatusPending,
		},
		{
			name:         "processing to cancelled restores stock",
			caller:       admin,
			from:         model.OrderStatusProcessing,
			to:           model.OrderStatusCancelled,
			wantRestore:  true,
			wantNotified: []model.OrderStatus{model.OrderStatusCancelled},
		},
		{
			name:         "completed to refunded restores stock",
			caller:       admin,
			from:         model.OrderStatusCompleted,
			to:           model.OrderStatusRefunded,
			wantRestore:  true,
			wantNotified: []model.OrderStatus{model.OrderStatusRefunded},
		},
		{
			name:         "already restored stock is not restored again",
			caller:       admin,
			from:         model.OrderStatusPendingRefund,
			restored:     true,
			to:           model.OrderStatusRefunded,
			wantNotified: []model.OrderStatus{model.OrderStatusRefunded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)
			order := newTestOrder(tt.from)
			order.StockRestored = tt.restored

			lockable := tt.caller.IsAdmin() && tt.to.Valid()
			if lockable {
				f.orders.On("LockByID", mock.Anything, mock.Anything, order.ID).Return(order, nil)
			}
			if tt.wantErr != "" {
				if lockable {
					f.expectRollback()
				}
			} else {
				f.expectCommit()
				f.orders.On("UpdateState", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
					return o.Status == tt.to && o.StockRestored == (tt.restored || tt.wantRestore)
				})).Return(nil)
			}
			if tt.wantRestore {
				f.ledger.On("Restore", mock.Anything, mock.Anything, order.StockItems()).Return(nil).Once()
			}

			updated, err := svc.UpdateStatus(ctx, tt.caller, order.ID, tt.to)

			if tt.wantErr != "" {
				var domainErr *model.Error
				require.True(t, errors.As(err, &domainErr))
				assert.Equal(t, tt.wantErr, domainErr.Code)
				assert.Nil(t, updated)
				f.orders.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			}
			if !tt.wantRestore {
				f.ledger.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
			}
			assert.Equal(t, tt.wantNotified, f.notifier.sent())
			f.assertExpectations(t)
		})
	}
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  model.Identity
		from    model.OrderStatus
		wantErr error
	}{
		{name: "owner cancels pending", caller: customer, from: model.OrderStatusPending},
		{name: "owner cancels failed", caller: customer, from: model.OrderStatusFailed},
		{name: "admin cancels processing", caller: admin, from: model.OrderStatusProcessing},
		{
			name:    "owner cannot cancel processing",
			caller:  customer,
			from:    model.OrderStatusProcessing,
			wantErr: model.NewInvalidTransitionError(model.OrderStatusProcessing, model.OrderStatusCancelled),
		},
		{
			name:    "completed cannot be cancelled",
			caller:  admin,
			from:    model.OrderStatusCompleted,
			wantErr: model.NewInvalidTransitionError(model.OrderStatusCompleted, model.OrderStatusCancelled),
		},
		{
			name:    "other user sees not found",
			caller:  stranger,
			from:    model.OrderStatusPending,
			wantErr: model.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			svc := newOrderService(f)
			order := newTestOrder(tt.from)

			f.orders.On("LockByID", mock.Anything, mock.Anything, order.ID).Return(order, nil)
			if tt.wantErr != nil {
				f.expectRollback()
			} else {
				f.expectCommit()
				f.ledger.On("Restore", mock.Anything, mock.Anything, order.StockItems()).Return(nil).Once()
				f.orders.On("UpdateState", mock.Anything, mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
					return o.Status == model.OrderStatusCancelled && o.StockRestored
				})).Return(nil)
			}

			cancelled, err := svc.Cancel(ctx, tt.caller, order.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.notifier.sent())
				f.ledger.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
				assert.Equal(t, []model.OrderStatus{model.OrderStatusCancelled}, f.notifier.sent())
			}
			f.assertExpectations(t)
		})
	}
}

func TestOrderService_Cancel_RestoreFailureRollsBack(t *testing.T) {
	f := newFixture()
	svc := newOrderService(f)
	order := newTestOrder(model.OrderStatusPending)

	f.expectRollback()
	f.orders.On("LockByID", mock.Anything, mock.Anything, order.ID).Return(order, nil)
	f.ledger.On("Restore", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("deadlock detected"))

	_, err := svc.Cancel(context.Background(), customer, order.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to restore stock")
	f.orders.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestOrderService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("customer rejected", func(t *testing.T) {
		f := newFixture()
		svc := newOrderService(f)

		err := svc.Delete(ctx, customer, uuid.New())

		assert.ErrorIs(t, err, model.ErrAdminRequired)
		f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("admin deletes without restoring stock", func(t *testing.T) {
		f := newFixture()
		svc := newOrderService(f)
		order := newTestOrder(model.OrderStatusCompleted)

		f.expectCommit()
		f.orders.On("LockByID", mock.Anything, mock.Anything, order.ID).Return(order, nil)
		f.orders.On("DeleteOrder", mock.Anything, mock.Anything, order.ID).Return(nil)

		require.NoError(t, svc.Delete(ctx, admin, order.ID))
		f.ledger.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture()
		svc := newOrderService(f)
		id := uuid.New()

		f.expectRollback()
		f.orders.On("LockByID", mock.Anything, mock.Anything, id).Return(nil, nil)

		assert.ErrorIs(t, svc.Delete(ctx, admin, id), model.ErrOrderNotFound)
		f.assertExpectations(t)
	})
}
