package service

import (
	"context"
	"fmt"
	"time"

	"kart-commerce/internal/cache"
	"kart-commerce/internal/model"
	"kart-commerce/internal/notify"
	"kart-commerce/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// reconciler applies settled payment and refund outcomes to a locked order.
// Every method is a set-operation on the current state, so replays and out of
// order deliveries leave the order unchanged.
type reconciler struct {
	orders   repository.OrderRepository
	ledger   repository.InventoryLedger
	cache    cache.Cache
	notifier notify.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func newReconciler(deps Dependencies, logger zerolog.Logger) *reconciler {
	c := deps.Cache
	if c == nil {
		c = cache.NopCache{}
	}
	return &reconciler{
		orders:   deps.Orders,
		ledger:   deps.Ledger,
		cache:    c,
		notifier: deps.Notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// change describes what a transition did to an order.
type change struct {
	updated  bool
	restored bool
}

// nextPaymentState returns the order status and payment status implied by a
// provider payment status, and whether anything differs from the order.
func nextPaymentState(order *model.Order, status model.PaymentStatus) (model.OrderStatus, string, bool) {
	current := order.Status
	switch status {
	case model.PaymentStatusSucceeded:
		switch current {
		case model.OrderStatusPending, model.OrderStatusProcessing, model.OrderStatusFailed:
			return model.OrderStatusCompleted, string(status), true
		}
	case model.PaymentStatusFailed, model.PaymentStatusCanceled:
		switch current {
		case model.OrderStatusPending, model.OrderStatusProcessing:
			return model.OrderStatusFailed, string(status), true
		}
	case model.PaymentStatusProcessing, model.PaymentStatusRequiresAction:
		switch current {
		case model.OrderStatusPending, model.OrderStatusProcessing:
			if order.PaymentStatus != string(status) {
				return current, string(status), true
			}
		}
	}
	return current, order.PaymentStatus, false
}

// nextRefundState returns the order status implied by a refund outcome.
func nextRefundState(order *model.Order, status model.RefundStatus) (model.OrderStatus, bool) {
	current := order.Status
	if current == model.OrderStatusRefunded || current == model.OrderStatusCancelled {
		return current, false
	}

	switch status {
	case model.RefundStatusSucceeded:
		return model.OrderStatusRefunded, true
	case model.RefundStatusPending:
		if current != model.OrderStatusPendingRefund {
			return model.OrderStatusPendingRefund, true
		}
	case model.RefundStatusFailed, model.RefundStatusCanceled:
		if current != model.OrderStatusRefundFailed {
			return model.OrderStatusRefundFailed, true
		}
	}
	return current, false
}

// applyPayment persists the effect of a provider payment status.
func (r *reconciler) applyPayment(ctx context.Context, tx pgx.Tx, order *model.Order, status model.PaymentStatus) (change, error) {
	next, paymentStatus, updated := nextPaymentState(order, status)
	if !updated {
		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("order_status", string(order.Status)).
			Str("payment_status", string(status)).
			Msg("payment outcome already applied or superseded")
		return change{}, nil
	}

	order.Status = next
	order.PaymentStatus = paymentStatus
	order.UpdatedAt = r.now()
	if err := r.orders.UpdateState(ctx, tx, order); err != nil {
		return change{}, err
	}
	return change{updated: true}, nil
}

// applyRefund persists the effect of a refund outcome. A succeeded refund
// restores stock unless it was already returned.
func (r *reconciler) applyRefund(ctx context.Context, tx pgx.Tx, order *model.Order, status model.RefundStatus) (change, error) {
	next, updated := nextRefundState(order, status)
	if !updated {
		r.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("order_status", string(order.Status)).
			Str("refund_status", string(status)).
			Msg("refund outcome already applied or superseded")
		return change{}, nil
	}

	var c change
	order.Status = next
	if next == model.OrderStatusRefunded {
		order.PaymentStatus = string(model.PaymentStatusRefunded)
		restored, err := r.releaseStock(ctx, tx, order)
		if err != nil {
			return change{}, err
		}
		c.restored = restored
	}

	order.UpdatedAt = r.now()
	if err := r.orders.UpdateState(ctx, tx, order); err != nil {
		return change{}, err
	}
	c.updated = true
	return c, nil
}

// releaseStock returns the order's reservation once. The caller persists the
// flag through UpdateState in the same transaction.
func (r *reconciler) releaseStock(ctx context.Context, tx pgx.Tx, order *model.Order) (bool, error) {
	if order.StockRestored {
		return false, nil
	}
	if len(order.Lines) > 0 {
		if err := r.ledger.Restore(ctx, tx, order.StockItems()); err != nil {
			return false, fmt.Errorf("failed to restore stock: %w", err)
		}
	}
	order.StockRestored = true

	r.logger.Info().
		Str("order_id", order.ID.String()).
		Int("line_count", len(order.Lines)).
		Msg("stock restored")
	return true, nil
}

// afterCommit runs the side effects that must never affect the transaction.
func (r *reconciler) afterCommit(ctx context.Context, order *model.Order, c change) {
	if c.restored {
		if err := cache.InvalidateStock(ctx, r.cache, order.ProductIDs()); err != nil {
			r.logger.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to invalidate catalogue cache")
		}
	}
	if c.updated && order.Status.IsTerminal() && r.notifier != nil {
		r.notifier.Notify(ctx, order)
	}
}
