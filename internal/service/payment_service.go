package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"kart-commerce/internal/model"
	"kart-commerce/internal/payment"
	"kart-commerce/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultGatewayTimeout = 10 * time.Second

// paymentService implements PaymentService.
type paymentService struct {
	orders     repository.OrderRepository
	payments   repository.PaymentRepository
	gateway    payment.Gateway
	timeout    time.Duration
	reconciler *reconciler
	logger     zerolog.Logger
}

// NewPaymentService creates a new payment orchestrator.
func NewPaymentService(deps Dependencies, opts Options, logger zerolog.Logger) PaymentService {
	logger = logger.With().Str("service", "payment").Logger()
	timeout := opts.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	return &paymentService{
		orders:     deps.Orders,
		payments:   deps.Payments,
		gateway:    deps.Gateway,
		timeout:    timeout,
		reconciler: newReconciler(deps, logger),
		logger:     logger,
	}
}

// InitiatePayment locks the order, opens a provider payment attempt and moves
// the order to processing. Any gateway failure rolls back and leaves the
// order pending.
func (s *paymentService) InitiatePayment(ctx context.Context, caller model.Identity, orderID uuid.UUID, currency string) (*model.PaymentResponse, error) {
	var (
		order  *model.Order
		intent *payment.PaymentIntent
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil || caller.UserID == "" || order.UserID != caller.UserID {
			return model.ErrOrderNotFound
		}
		if order.Status != model.OrderStatusPending {
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusProcessing)
		}
		if currency != "" && model.NormaliseCurrency(currency) != order.Currency {
			return model.ErrCurrencyMismatch
		}

		amount := model.ToMinorUnits(order.TotalAmount, order.Currency)
		if amount <= 0 {
			return model.ErrInvalidAmount
		}

		gctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		intent, err = s.gateway.CreatePayment(gctx, payment.CreatePaymentInput{
			OrderID:        order.ID,
			Amount:         amount,
			Currency:       order.Currency,
			UserID:         order.UserID,
			Description:    fmt.Sprintf("Order %s", order.ID),
			IdempotencyKey: attemptKey(order),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("payment attempt could not be opened")
			return err
		}

		order.Status = model.OrderStatusProcessing
		order.PaymentIntentID = &intent.ProviderTransactionID
		order.PaymentStatus = string(intent.Status)
		order.UpdatedAt = s.reconciler.now()
		return s.orders.UpdateState(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("payment_intent_id", intent.ProviderTransactionID).
		Msg("payment initiated")

	return &model.PaymentResponse{
		ClientSecret: intent.ClientSecret,
		OrderID:      order.ID,
		OrderStatus:  order.Status,
	}, nil
}

// attemptKey identifies one payment attempt. Retrying after a rolled back
// attempt reuses the key; reopening a failed order changes UpdatedAt and
// yields a fresh one.
func attemptKey(order *model.Order) string {
	return fmt.Sprintf("order-%s-%d", order.ID, order.UpdatedAt.UnixNano())
}

// GetPaymentStatus reads the provider status of an intent.
func (s *paymentService) GetPaymentStatus(ctx context.Context, caller model.Identity, paymentIntentID string) (*model.PaymentStatusResponse, error) {
	order, err := s.orders.GetByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order by payment intent: %w", err)
	}
	if order == nil && !caller.IsAdmin() {
		return nil, model.ErrOrderNotFound
	}
	if order != nil && !caller.CanAccess(order.UserID) {
		return nil, model.ErrOrderNotFound
	}

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.gateway.GetPaymentStatus(gctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	if order != nil && result.Status.IsTerminal() {
		s.syncPaymentStatus(ctx, paymentIntentID, result.Status)
	}

	return &model.PaymentStatusResponse{
		Status:   result.Status,
		Amount:   result.Amount,
		Currency: result.Currency,
	}, nil
}

// syncPaymentStatus applies a settled provider status to the order. Failures
// are logged only.
func (s *paymentService) syncPaymentStatus(ctx context.Context, paymentIntentID string, status model.PaymentStatus) {
	var (
		order *model.Order
		c     change
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByPaymentIntent(ctx, tx, paymentIntentID)
		if err != nil || order == nil {
			return err
		}
		c, err = s.reconciler.applyPayment(ctx, tx, order, status)
		return err
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("payment_intent_id", paymentIntentID).Msg("failed to sync payment status")
		return
	}
	if order != nil {
		s.reconciler.afterCommit(ctx, order, c)
	}
}

// Refund refunds a paid order. The attempt is committed whatever the provider
// outcome; stock comes back only once the refund has succeeded. A refund the
// provider accepted is recorded in a fresh transaction if the first one
// cannot commit.
func (s *paymentService) Refund(ctx context.Context, caller model.Identity, orderID uuid.UUID, amount *decimal.Decimal) (*model.RefundResponse, error) {
	var (
		order        *model.Order
		refund       *payment.Refund
		refundAmount decimal.Decimal
		c            change
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil || !caller.CanAccess(order.UserID) {
			return model.ErrOrderNotFound
		}
		if order.PaymentIntentID == nil {
			return model.ErrNoPaymentIntent
		}
		switch order.Status {
		case model.OrderStatusCompleted, model.OrderStatusRefundFailed:
		case model.OrderStatusRefunded, model.OrderStatusCancelled:
			return model.ErrAlreadyRefunded
		default:
			return model.NewInvalidTransitionError(order.Status, model.OrderStatusPendingRefund)
		}

		refundAmount = order.TotalAmount
		var minor *int64
		if amount != nil {
			if !amount.IsPositive() || amount.GreaterThan(order.TotalAmount) {
				return model.ErrInvalidAmount
			}
			refundAmount = *amount
			units := model.ToMinorUnits(*amount, order.Currency)
			minor = &units
		}

		gctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		refund, err = s.gateway.RefundPayment(gctx, payment.RefundInput{
			ProviderTransactionID: *order.PaymentIntentID,
			Amount:                minor,
			IdempotencyKey:        refundKey(order, minor),
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("refund request failed")
			return err
		}

		c, err = s.settleRefund(ctx, tx, order, refund, refundAmount)
		return err
	})
	if err != nil && refund != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", orderID.String()).
			Str("refund_id", refund.RefundID).
			Msg("refund accepted by provider but not recorded, retrying")
		order, c, err = s.resettleRefund(ctx, orderID, refund, refundAmount)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("refund_id", refund.RefundID).
		Str("refund_status", string(refund.Status)).
		Str("order_status", string(order.Status)).
		Msg("refund processed")

	s.reconciler.afterCommit(ctx, order, c)

	return &model.RefundResponse{
		RefundID:       refund.RefundID,
		Status:         refund.Status,
		OrderID:        order.ID,
		NewOrderStatus: order.Status,
	}, nil
}

// refundKey identifies one refund request. A retry against an unchanged order
// reuses the key, so the provider returns the refund it already created.
func refundKey(order *model.Order, minor *int64) string {
	amount := "full"
	if minor != nil {
		amount = strconv.FormatInt(*minor, 10)
	}
	return fmt.Sprintf("refund-%s-%d-%s", order.ID, order.UpdatedAt.UnixNano(), amount)
}

// settleRefund records the refund and applies its outcome to the locked order.
func (s *paymentService) settleRefund(ctx context.Context, tx pgx.Tx, order *model.Order, refund *payment.Refund, amount decimal.Decimal) (change, error) {
	now := s.reconciler.now()
	if err := s.payments.CreateRefund(ctx, tx, &model.RefundRecord{
		ID:        uuid.New(),
		RefundID:  refund.RefundID,
		OrderID:   order.ID,
		Amount:    amount,
		Currency:  order.Currency,
		Status:    refund.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return change{}, err
	}
	return s.reconciler.applyRefund(ctx, tx, order, refund.Status)
}

// resettleRefund retries settleRefund against a freshly locked order. It runs
// detached from the request so a disconnecting client cannot abandon it.
func (s *paymentService) resettleRefund(ctx context.Context, orderID uuid.UUID, refund *payment.Refund, amount decimal.Decimal) (*model.Order, change, error) {
	ctx = context.WithoutCancel(ctx)

	var (
		order *model.Order
		c     change
	)
	err := runInTx(ctx, s.orders, s.logger, func(tx pgx.Tx) error {
		var err error
		order, err = s.orders.LockByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}
		c, err = s.settleRefund(ctx, tx, order, refund, amount)
		return err
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("refund_id", refund.RefundID).
			Msg("failed to record provider refund")
		return nil, change{}, err
	}
	return order, c, nil
}

func (s *paymentService) ClientConfig() payment.ClientConfig {
	return s.gateway.GetClientConfig()
}
