package repository

import (
	"context"
	"fmt"

	"kart-commerce/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// paymentRepository implements PaymentRepository using PostgreSQL.
type paymentRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db DB, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// CreateRefund records a refund attempt.
func (r *paymentRepository) CreateRefund(ctx context.Context, tx pgx.Tx, refund *model.RefundRecord) error {
	query := `
		INSERT INTO refunds (id, refund_id, order_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (refund_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`

	_, err := tx.Exec(ctx, query,
		refund.ID,
		refund.RefundID,
		refund.OrderID,
		refund.Amount,
		refund.Currency,
		refund.Status,
		refund.CreatedAt,
		refund.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("refund_id", refund.RefundID).
			Str("order_id", refund.OrderID.String()).
			Msg("failed to record refund")
		return fmt.Errorf("failed to record refund: %w", TranslateError(err))
	}

	return nil
}

// UpdateRefundStatus sets the provider status of a recorded refund.
func (r *paymentRepository) UpdateRefundStatus(ctx context.Context, tx pgx.Tx, refundID string, status model.RefundStatus) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE refunds SET status = $2, updated_at = NOW() WHERE refund_id = $1`,
		refundID, status)
	if err != nil {
		r.logger.Error().Err(err).Str("refund_id", refundID).Msg("failed to update refund status")
		return false, fmt.Errorf("failed to update refund status: %w", TranslateError(err))
	}
	return tag.RowsAffected() > 0, nil
}

// ListRefunds returns the refunds recorded for an order, oldest first.
func (r *paymentRepository) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]model.RefundRecord, error) {
	query := `
		SELECT id, refund_id, order_id, amount, currency, status, created_at, updated_at
		FROM refunds
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query refunds")
		return nil, fmt.Errorf("failed to query refunds: %w", err)
	}
	defer rows.Close()

	refunds := []model.RefundRecord{}
	for rows.Next() {
		var rf model.RefundRecord
		if err := rows.Scan(&rf.ID, &rf.RefundID, &rf.OrderID, &rf.Amount, &rf.Currency, &rf.Status, &rf.CreatedAt, &rf.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan refund row")
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, rf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refunds: %w", err)
	}

	return refunds, nil
}

// RecordEvent marks a provider event as processed inside tx. A duplicate event
// id leaves the table unchanged and returns false.
func (r *paymentRepository) RecordEvent(ctx context.Context, tx pgx.Tx, eventID, eventType, paymentIntentID string) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_id, event_type, payment_intent_id)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (event_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query, eventID, eventType, paymentIntentID)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to record webhook event")
		return false, fmt.Errorf("failed to record webhook event: %w", TranslateError(err))
	}

	fresh := tag.RowsAffected() == 1
	if !fresh {
		r.logger.Debug().Str("event_id", eventID).Msg("webhook event already processed")
	}
	return fresh, nil
}
