package service

import (
	"context"
	"sync"

	"kart-commerce/internal/model"
	"kart-commerce/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	args := m.Called(ctx, tx, lines)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	return orderArg(args, 0), args.Error(1)
}

func (m *MockOrderRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*model.Order, error) {
	args := m.Called(ctx, userID, key)
	return orderArg(args, 0), args.Error(1)
}

func (m *MockOrderRepository) GetByPaymentIntent(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	return orderArg(args, 0), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	return orderArg(args, 0), args.Error(1)
}

func (m *MockOrderRepository) LockByPaymentIntent(ctx context.Context, tx pgx.Tx, paymentIntentID string) (*model.Order, error) {
	args := m.Called(ctx, tx, paymentIntentID)
	return orderArg(args, 0), args.Error(1)
}

func (m *MockOrderRepository) UpdateState(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) DeleteOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func orderArg(args mock.Arguments, i int) *model.Order {
	if order, ok := args.Get(i).(*model.Order); ok {
		return order
	}
	return nil
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetStockUnits(ctx context.Context, items []model.StockItem) ([]model.StockUnit, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockUnit), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreateRefund(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	args := m.Called(ctx, tx, refund)
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdateRefundStatus(ctx context.Context, tx pgx.Tx, refundID string, status model.RefundStatus) (bool, error) {
	args := m.Called(ctx, tx, refundID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]model.RefundRecord, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RefundRecord), args.Error(1)
}

func (m *MockPaymentRepository) RecordEvent(ctx context.Context, tx pgx.Tx, eventID, eventType, paymentIntentID string) (bool, error) {
	args := m.Called(ctx, tx, eventID, eventType, paymentIntentID)
	return args.Bool(0), args.Error(1)
}

// MockLedger is a mock implementation of InventoryLedger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Reserve(ctx context.Context, tx pgx.Tx, items []model.StockItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockLedger) Restore(ctx context.Context, tx pgx.Tx, items []model.StockItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePayment(ctx context.Context, input payment.CreatePaymentInput) (*payment.PaymentIntent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PaymentIntent), args.Error(1)
}

func (m *MockGateway) GetPaymentStatus(ctx context.Context, id string) (*payment.StatusResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.StatusResult), args.Error(1)
}

func (m *MockGateway) RefundPayment(ctx context.Context, input payment.RefundInput) (*payment.Refund, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}

func (m *MockGateway) GetClientConfig() payment.ClientConfig {
	args := m.Called()
	return args.Get(0).(payment.ClientConfig)
}

// MockEvaluator is a mock implementation of coupon.Evaluator.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Discount(ctx context.Context, code string, subtotal decimal.Decimal, currency string) (decimal.Decimal, error) {
	args := m.Called(ctx, code, subtotal, currency)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []model.OrderStatus
}

func (n *recordingNotifier) Notify(_ context.Context, order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, order.Status)
}

func (n *recordingNotifier) sent() []model.OrderStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.OrderStatus(nil), n.statuses...)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx; repositories are mocked so these are never reached.
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// fixture wires every mock into the services under test.
type fixture struct {
	orders   *MockOrderRepository
	products *MockProductRepository
	payments *MockPaymentRepository
	ledger   *MockLedger
	gateway  *MockGateway
	coupons  *MockEvaluator
	notifier *recordingNotifier
	tx       *MockTx
}

func newFixture() *fixture {
	return &fixture{
		orders:   new(MockOrderRepository),
		products: new(MockProductRepository),
		payments: new(MockPaymentRepository),
		ledger:   new(MockLedger),
		gateway:  new(MockGateway),
		coupons:  new(MockEvaluator),
		notifier: &recordingNotifier{},
		tx:       new(MockTx),
	}
}

func (f *fixture) deps() Dependencies {
	return Dependencies{
		Orders:    f.orders,
		Products:  f.products,
		Payments:  f.payments,
		Ledger:    f.ledger,
		Gateway:   f.gateway,
		Evaluator: f.coupons,
		Notifier:  f.notifier,
	}
}

func (f *fixture) expectCommit() {
	f.orders.On("BeginTx", mock.Anything).Return(f.tx, nil).Once()
	f.tx.On("Commit", mock.Anything).Return(nil).Once()
}

func (f *fixture) expectRollback() {
	f.orders.On("BeginTx", mock.Anything).Return(f.tx, nil).Once()
	f.tx.On("Rollback", mock.Anything).Return(nil).Once()
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.orders.AssertExpectations(t)
	f.products.AssertExpectations(t)
	f.payments.AssertExpectations(t)
	f.ledger.AssertExpectations(t)
	f.gateway.AssertExpectations(t)
	f.coupons.AssertExpectations(t)
	f.tx.AssertExpectations(t)
}

func strPtr(s string) *string {
	return &s
}
