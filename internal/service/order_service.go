package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kart-commerce/internal/cache"
	"kart-commerce/internal/coupon"
	"kart-commerce/internal/model"
	"kart-commerce/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orders          repository.OrderRepository
	products        repository.ProductRepository
	ledger          repository.InventoryLedger
	evaluator       coupon.Evaluator
	cache           cache.Cache
	defaultCurrency string
	reconciler      *reconciler
	logger          zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(deps Dependencies, opts Options, logger zerolog.Logger) OrderService {
	logger = logger.With().Str("service", "order").Logger()
	r := newReconciler(deps, logger)

	return &orderService{
		orders:          deps.Orders,
		products:        deps.Products,
		ledger:          deps.Ledger,
		evaluator:       deps.Evaluator,
		cache:           r.cache,
		defaultCurrency: model.NormaliseCurrency(opts.DefaultCurrency),
		reconciler:      r,
		logger:          logger,
	}
}

// Checkout prices the request and creates the order.
func (s *orderService) Checkout(ctx context.Context, caller model.Identity, req *model.OrderRequest, idempotencyKey string) (*model.Order, error) {
	if caller.UserID == "" {
		return nil, model.ErrUnauthenticated
	}
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	var key *string
	if idempotencyKey = strings.TrimSpace(idempotencyKey); idempotencyKey != "" {
		key = &idempotencyKey
		existing, err := s.orders.GetByIdempotencyKey(ctx, caller.UserID, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
		if existing != nil {
			s.logger.Info().
				Str("order_id", existing.ID.String()).
				Str("user_id", caller.UserID).
				Msg("order replayed for idempotency key")
			return existing, nil
		}
	}

	currency := s.defaultCurrency
	if req.Currency != "" {
		currency = model.NormaliseCurrency(req.Currency)
	}
	if len(currency) != 3 {
		return nil, model.NewDomainError(model.ErrCodeCurrencyMismatch, "Currency must be a three-letter ISO code")
	}

	items := make([]model.StockItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.StockItem{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	}

	units, err := s.products.GetStockUnits(ctx, items)
	if err != nil {
		return nil, err
	}

	lines := make([]model.NewOrderLine, len(items))
	for i, item := range items {
		lines[i] = model.NewOrderLine{
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			PriceAtOrder: units[i].UnitPrice,
		}
	}

	subtotal := model.LinesSubtotal(lines)
	discount := decimal.Zero
	var couponCode *string
	if req.CouponCode != nil && *req.CouponCode != "" {
		if s.evaluator == nil {
			return nil, model.ErrInvalidPromoCode
		}
		discount, err = s.evaluator.Discount(ctx, *req.CouponCode, subtotal, currency)
		if err != nil {
			s.logger.Warn().Err(err).Str("coupon_code", *req.CouponCode).Msg("promo code rejected")
			return nil, err
		}
		couponCode = req.CouponCode
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return s.CreateOrder(ctx, model.NewOrder{
		UserID:          caller.UserID,
		TotalAmount:     total,
		DiscountAmount:  discount,
		Currency:        currency,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      couponCode,
		IdempotencyKey:  key,
		Lines:           lines,
	})
}

// CreateOrder inserts the order, reserves stock and inserts the lines in one
// transaction. Nothing persists when any unit is short.
func (s *orderService) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	if len(in.Lines) == 0 {
		return nil, model.ErrEmptyOrder
	}
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
	}
	if in.TotalAmount.IsNegative() {
		return nil, model.ErrInvalidAmount
	}

	now := s.reconciler.now()
	order := &model.Order{
		ID:              uuid.New(),
		UserID:          in.UserID,
		Status:          model.OrderStatusPending,
		TotalAmount:     in.TotalAmount,
		DiscountAmount:  in.DiscountAmount,
		Currency:        model.NormaliseCurrency(in.Currency),
		ShippingAddress: in.ShippingAddress,
		CouponCode:      in.CouponCode,
		IdempotencyKey:  in.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.Currency == "" {
		order.Currency = s.defaultCurrency
	}

	order.Lines = make([]model.OrderLine, len(in.Lines))
	for i, line := range in.Lines {
		order.Lines[i] = model.OrderLine{
			ID:           uuid.New(),
			OrderID:      order.ID,
			ProductID:    line.ProductID,
			VariantID:    line.VariantID,
			Quantity:     line.Quantity,
			PriceAtOrder: line.PriceAtOrder,
		}
	}

	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		if err := s.orders.CreateOrder(ctx, tx, order); err != nil {
			return err
		}
		if err := s.ledger.Reserve(ctx, tx, order.StockItems()); err != nil {
			return err
		}
		return s.orders.CreateOrderLines(ctx, tx, order.Lines)
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateOrder) && in.IdempotencyKey != nil {
			existing, lookupErr := s.orders.GetByIdempotencyKey(ctx, in.UserID, *in.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		s.logger.Warn().Err(err).Str("user_id", in.UserID).Int("line_count", len(order.Lines)).Msg("order creation failed")
		return nil, err
	}

	if err := cache.InvalidateStock(ctx, s.cache, order.ProductIDs()); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to invalidate catalogue cache")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID).
		Str("total_amount", order.TotalAmount.String()).
		Int("line_count", len(order.Lines)).
		Msg("order created successfully")

	return order, nil
}

// GetByID retrieves an order visible to the caller. Orders of other users
// are reported as not found.
func (s *orderService) GetByID(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || !caller.CanAccess(order.UserID) {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListByUser(ctx context.Context, caller model.Identity, limit, offset int) ([]model.Order, error) {
	if caller.UserID == "" {
		return nil, model.ErrUnauthenticated
	}
	limit, offset = normalisePage(limit, offset)

	orders, err := s.orders.ListByUser(ctx, caller.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", caller.UserID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies an administrative status change. Entering cancelled or
// refunded returns the reservation once.
func (s *orderService) UpdateStatus(ctx context.Context, caller model.Identity, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrAdminRequired
	}
	if !status.Valid() {
		return nil, model.NewDomainError(model.ErrCodeInvalidTransition, fmt.Sprintf("unknown order status %q", status))
	}

	var (
		order *model.Order
		c     change
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if !order.Status.CanTransitionTo(status) {
			return model.NewInvalidTransitionError(order.Status, status)
		}

		from := order.Status
		order.Status = status
		if status.ReleasesStock() {
			if c.restored, err = s.reconciler.releaseStock(ctx, tx, order); err != nil {
				return err
			}
		}
		order.UpdatedAt = s.reconciler.now()
		if err := s.orders.UpdateState(ctx, tx, order); err != nil {
			return err
		}
		c.updated = true

		s.logger.Info().
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(status)).
			Str("admin_id", caller.UserID).
			Msg("order status updated")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reconciler.afterCommit(ctx, order, c)
	return order, nil
}

// Cancel cancels a pending or failed order. Admins may also cancel orders
// whose payment is in flight.
func (s *orderService) Cancel(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	var (
		order *model.Order
		c     change
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil || !caller.CanAccess(order.UserID) {
			return model.ErrOrderNotFound
		}

		switch order.Status {
		case model.OrderStatusPending, model.OrderStatusFailed:
		case model.OrderStatusProcessing:
			if !caller.IsAdmin() {
				return model.NewInvalidTransitionError(order.Status, model.OrderStatusCancelled)
			}
		default:
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusCancelled)
		}

		order.Status = model.OrderStatusCancelled
		if c.restored, err = s.reconciler.releaseStock(ctx, tx, order); err != nil {
			return err
		}
		order.UpdatedAt = s.reconciler.now()
		if err := s.orders.UpdateState(ctx, tx, order); err != nil {
			return err
		}
		c.updated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_id", id.String()).Str("user_id", caller.UserID).Msg("order cancelled")
	s.reconciler.afterCommit(ctx, order, c)
	return order, nil
}

// Delete removes an order as an administrative correction. The reservation
// is kept.
func (s *orderService) Delete(ctx context.Context, caller model.Identity, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return model.ErrAdminRequired
	}

	return runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		order, err := s.orders.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		if err := s.orders.DeleteOrder(ctx, tx, id); err != nil {
			return err
		}

		s.logger.Info().
			Str("order_id", id.String()).
			Str("status", string(order.Status)).
			Str("admin_id", caller.UserID).
			Msg("order deleted by admin")
		return nil
	})
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyOrder
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "shippingAddress is required")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewDomainError(model.ErrCodeMissingField, fmt.Sprintf("items[%d].productId is required", i))
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return nil
}
