package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"kart-commerce/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	lockProductStockQuery = `SELECT stock FROM products WHERE id = $1 FOR UPDATE`
	lockVariantStockQuery = `SELECT stock FROM product_variants WHERE id = $1 AND product_id = $2 FOR UPDATE`

	adjustProductStockQuery = `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`
	adjustVariantStockQuery = `UPDATE product_variants SET stock = stock + $3, updated_at = NOW() WHERE id = $1 AND product_id = $2`
)

// inventoryLedger implements InventoryLedger on products.stock and
// product_variants.stock. It never opens its own transaction.
type inventoryLedger struct {
	logger zerolog.Logger
}

// NewInventoryLedger creates a PostgreSQL-backed inventory ledger.
func NewInventoryLedger(logger zerolog.Logger) InventoryLedger {
	return &inventoryLedger{
		logger: logger.With().Str("repository", "inventory").Logger(),
	}
}

// Reserve locks every unit in ascending (productID, variantID) order, checks
// availability and decrements.
func (l *inventoryLedger) Reserve(ctx context.Context, tx pgx.Tx, items []model.StockItem) error {
	units, err := normaliseItems(items)
	if err != nil {
		return err
	}

	for _, unit := range units {
		available, err := l.lockUnit(ctx, tx, unit)
		if err != nil {
			return err
		}

		if available < unit.Quantity {
			l.logger.Warn().
				Str("product_id", unit.ProductID).
				Str("variant_id", unit.VariantKey()).
				Int("available", available).
				Int("requested", unit.Quantity).
				Msg("insufficient stock")
			return model.NewInsufficientStockError(unit.ProductID, unit.VariantID, available, unit.Quantity)
		}

		if _, err := l.adjust(ctx, tx, unit, -unit.Quantity); err != nil {
			return err
		}
	}

	l.logger.Debug().Int("units", len(units)).Msg("stock reserved")
	return nil
}

// Restore increments every unit in the same order Reserve locks them. Units
// that no longer exist are skipped.
func (l *inventoryLedger) Restore(ctx context.Context, tx pgx.Tx, items []model.StockItem) error {
	units, err := normaliseItems(items)
	if err != nil {
		return err
	}

	for _, unit := range units {
		updated, err := l.adjust(ctx, tx, unit, unit.Quantity)
		if err != nil {
			return err
		}
		if !updated {
			l.logger.Warn().
				Str("product_id", unit.ProductID).
				Str("variant_id", unit.VariantKey()).
				Int("quantity", unit.Quantity).
				Msg("stock unit missing, restoration skipped")
		}
	}

	l.logger.Debug().Int("units", len(units)).Msg("stock restored")
	return nil
}

func (l *inventoryLedger) lockUnit(ctx context.Context, tx pgx.Tx, unit model.StockItem) (int, error) {
	var row pgx.Row
	if unit.VariantID == nil {
		row = tx.QueryRow(ctx, lockProductStockQuery, unit.ProductID)
	} else {
		row = tx.QueryRow(ctx, lockVariantStockQuery, *unit.VariantID, unit.ProductID)
	}

	var available int
	if err := row.Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.logger.Debug().
				Str("product_id", unit.ProductID).
				Str("variant_id", unit.VariantKey()).
				Msg("stock unit not found")
			return 0, model.NewNotFoundError(model.ErrCodeProductNotFound,
				fmt.Sprintf("product %s not found", unit.Key()))
		}
		l.logger.Error().Err(err).Str("product_id", unit.ProductID).Msg("failed to lock stock unit")
		return 0, fmt.Errorf("failed to lock stock unit %s: %w", unit.Key(), TranslateError(err))
	}

	return available, nil
}

func (l *inventoryLedger) adjust(ctx context.Context, tx pgx.Tx, unit model.StockItem, delta int) (bool, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if unit.VariantID == nil {
		tag, err = tx.Exec(ctx, adjustProductStockQuery, unit.ProductID, delta)
	} else {
		tag, err = tx.Exec(ctx, adjustVariantStockQuery, *unit.VariantID, unit.ProductID, delta)
	}
	if err != nil {
		l.logger.Error().Err(err).
			Str("product_id", unit.ProductID).
			Str("variant_id", unit.VariantKey()).
			Int("delta", delta).
			Msg("failed to adjust stock")
		return false, fmt.Errorf("failed to adjust stock for %s: %w", unit.Key(), TranslateError(err))
	}
	return tag.RowsAffected() > 0, nil
}

// normaliseItems merges duplicate units, rejects non-positive quantities and
// sorts by product then variant, product-level units first.
func normaliseItems(items []model.StockItem) ([]model.StockItem, error) {
	merged := make(map[string]int, len(items))
	units := make([]model.StockItem, 0, len(items))

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		key := item.Key()
		if idx, ok := merged[key]; ok {
			units[idx].Quantity += item.Quantity
			continue
		}
		merged[key] = len(units)
		units = append(units, item)
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].ProductID != units[j].ProductID {
			return units[i].ProductID < units[j].ProductID
		}
		return units[i].VariantKey() < units[j].VariantKey()
	})

	return units, nil
}
