package service

import (
	"context"
	"time"

	"kart-commerce/internal/model"
	"kart-commerce/internal/payment"
	"kart-commerce/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var eventPaymentStatus = map[string]model.PaymentStatus{
	payment.EventPaymentSucceeded:  model.PaymentStatusSucceeded,
	payment.EventPaymentFailed:     model.PaymentStatusFailed,
	payment.EventPaymentCanceled:   model.PaymentStatusCanceled,
	payment.EventPaymentProcessing: model.PaymentStatusProcessing,
}

// webhookService implements WebhookService.
type webhookService struct {
	orders     repository.OrderRepository
	payments   repository.PaymentRepository
	secret     string
	tolerance  time.Duration
	reconciler *reconciler
	logger     zerolog.Logger
}

// NewWebhookService creates a new webhook reconciler.
func NewWebhookService(deps Dependencies, opts Options, logger zerolog.Logger) WebhookService {
	logger = logger.With().Str("service", "webhook").Logger()

	return &webhookService{
		orders:     deps.Orders,
		payments:   deps.Payments,
		secret:     opts.WebhookSecret,
		tolerance:  opts.WebhookTolerance,
		reconciler: newReconciler(deps, logger),
		logger:     logger,
	}
}

// HandleProviderEvent verifies the signature before anything is read from
// the payload. The event id is recorded in the same transaction as its
// effect, so a failed attempt can be redelivered.
func (s *webhookService) HandleProviderEvent(ctx context.Context, payload []byte, signature string) error {
	if err := payment.VerifySignature(payload, signature, s.secret, s.tolerance, s.reconciler.now()); err != nil {
		s.logger.Warn().Err(err).Msg("webhook rejected")
		return err
	}

	// A signed event that cannot be mapped would only be redelivered, so it
	// is acknowledged and dropped.
	event, err := payment.ParseEvent(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("malformed webhook event dropped")
		return nil
	}

	logger := s.logger.With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("payment_intent_id", event.PaymentIntentID).
		Logger()

	if !event.Known() {
		logger.Info().Msg("ignoring unhandled event type")
		return nil
	}

	var (
		order *model.Order
		c     change
	)
	err = runInTx(ctx, s.orders, logger, func(tx pgx.Tx) error {
		fresh, err := s.payments.RecordEvent(ctx, tx, event.ID, event.Type, event.PaymentIntentID)
		if err != nil {
			return err
		}
		if !fresh {
			logger.Info().Msg("duplicate event acknowledged")
			return nil
		}

		order, err = s.orders.LockByPaymentIntent(ctx, tx, event.PaymentIntentID)
		if err != nil {
			return err
		}
		if order == nil {
			logger.Info().Msg("no order holds this payment intent, event ignored")
			return nil
		}

		if event.IsRefund() {
			if event.RefundID != "" {
				known, err := s.payments.UpdateRefundStatus(ctx, tx, event.RefundID, event.RefundStatus)
				if err != nil {
					return err
				}
				if !known {
					logger.Debug().Str("refund_id", event.RefundID).Msg("refund not initiated here")
				}
			}
			c, err = s.reconciler.applyRefund(ctx, tx, order, event.RefundStatus)
			return err
		}

		c, err = s.reconciler.applyPayment(ctx, tx, order, eventPaymentStatus[event.Type])
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to apply webhook event")
		return err
	}

	if order != nil {
		if c.updated {
			logger.Info().
				Str("order_id", order.ID.String()).
				Str("order_status", string(order.Status)).
				Bool("stock_restored", c.restored).
				Msg("order reconciled")
		}
		s.reconciler.afterCommit(ctx, order, c)
	}
	return nil
}
