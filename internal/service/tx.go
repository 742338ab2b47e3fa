package service

import (
	"context"
	"errors"
	"fmt"

	"kart-commerce/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type txBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// runInTx commits when fn succeeds and rolls back otherwise, including when
// fn panics. The panic is re-raised after the rollback.
func runInTx(ctx context.Context, db txBeginner, logger zerolog.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", repository.TranslateError(err))
	}
	committed = true
	return nil
}
