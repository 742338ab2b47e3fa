package repository

import (
	"context"
	"errors"
	"fmt"

	"kart-commerce/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db DB, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetAll retrieves all products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT id, name, price, category, stock, created_at, updated_at
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product with its variants.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, price, category, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, product_id, name, price, stock FROM product_variants WHERE product_id = $1 ORDER BY id`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		p.Variants = append(p.Variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return &p, nil
}

// GetStockUnits reads unit price and availability for each item. A variant
// without its own price inherits the product price.
func (r *productRepository) GetStockUnits(ctx context.Context, items []model.StockItem) ([]model.StockUnit, error) {
	if len(items) == 0 {
		return []model.StockUnit{}, nil
	}

	var productIDs, variantIDs []string
	for _, item := range items {
		if item.VariantID == nil {
			productIDs = append(productIDs, item.ProductID)
		} else {
			variantIDs = append(variantIDs, *item.VariantID)
		}
	}

	found := make(map[string]model.StockUnit, len(items))

	if len(productIDs) > 0 {
		rows, err := r.db.Query(ctx, `SELECT id, price, stock FROM products WHERE id = ANY($1)`, productIDs)
		if err != nil {
			r.logger.Error().Err(err).Int("count", len(productIDs)).Msg("failed to query product units")
			return nil, fmt.Errorf("failed to query product units: %w", err)
		}
		err = collectUnits(rows, found, false)
		if err != nil {
			return nil, err
		}
	}

	if len(variantIDs) > 0 {
		query := `
			SELECT v.product_id, v.id, COALESCE(v.price, p.price), v.stock
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = ANY($1)
		`
		rows, err := r.db.Query(ctx, query, variantIDs)
		if err != nil {
			r.logger.Error().Err(err).Int("count", len(variantIDs)).Msg("failed to query variant units")
			return nil, fmt.Errorf("failed to query variant units: %w", err)
		}
		err = collectUnits(rows, found, true)
		if err != nil {
			return nil, err
		}
	}

	units := make([]model.StockUnit, 0, len(items))
	for _, item := range items {
		unit, ok := found[item.Key()]
		if !ok {
			r.logger.Warn().
				Str("product_id", item.ProductID).
				Str("variant_id", item.VariantKey()).
				Msg("stock unit not found")
			return nil, model.NewNotFoundError(model.ErrCodeProductNotFound,
				fmt.Sprintf("product %s not found", item.Key()))
		}
		units = append(units, unit)
	}

	return units, nil
}

func collectUnits(rows pgx.Rows, found map[string]model.StockUnit, variants bool) error {
	defer rows.Close()

	for rows.Next() {
		var (
			unit  model.StockUnit
			price decimal.Decimal
		)
		if variants {
			var variantID string
			if err := rows.Scan(&unit.ProductID, &variantID, &price, &unit.Available); err != nil {
				return fmt.Errorf("failed to scan stock unit: %w", err)
			}
			unit.VariantID = &variantID
		} else {
			if err := rows.Scan(&unit.ProductID, &price, &unit.Available); err != nil {
				return fmt.Errorf("failed to scan stock unit: %w", err)
			}
		}
		unit.UnitPrice = price
		key := model.StockItem{ProductID: unit.ProductID, VariantID: unit.VariantID}.Key()
		found[key] = unit
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stock units: %w", err)
	}
	return nil
}
