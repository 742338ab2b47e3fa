package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kart-commerce/internal/cache"
	"kart-commerce/internal/model"
	"kart-commerce/internal/repository"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	cache       cache.Cache
	ttl         time.Duration
	logger      zerolog.Logger
}

// NewProductService creates a product service that reads through c. A nil
// cache disables caching.
func NewProductService(productRepo repository.ProductRepository, c cache.Cache, ttl time.Duration, logger zerolog.Logger) ProductService {
	if c == nil {
		c = cache.NopCache{}
	}
	return &productService{
		productRepo: productRepo,
		cache:       c,
		ttl:         ttl,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// GetAll retrieves products with pagination.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = normalisePage(limit, offset)
	key := cache.ProductListKey(limit, offset)

	var products []model.Product
	if s.readCache(ctx, key, &products) {
		return products, nil
	}

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to get all products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.writeCache(ctx, key, products)
	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, model.ErrProductNotFound
	}
	key := cache.ProductKey(id)

	var cached model.Product
	if s.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	s.writeCache(ctx, key, product)
	return product, nil
}

// readCache reports a hit. Cache failures degrade to a miss.
func (s *productService) readCache(ctx context.Context, key string, dst any) bool {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

func (s *productService) writeCache(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
