package coupon

import (
	"context"
	"fmt"
	"sync"

	"kart-commerce/internal/model"

	"github.com/rs/zerolog"
)

const (
	minCodeLength = 8
	maxCodeLength = 10
)

// ValidatorConfig lists the coupon sources and how many of them must contain
// a code for it to be accepted.
type ValidatorConfig struct {
	Sources       []string
	MinMatchCount int
}

// DefaultValidatorConfig returns the three bundled coupon bases with a
// two-of-three rule.
func DefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		Sources: []string{
			"data/coupons/couponbase1.gz",
			"data/coupons/couponbase2.gz",
			"data/coupons/couponbase3.gz",
		},
		MinMatchCount: 2,
	}
}

type validator struct {
	sets     []CouponSet
	minMatch int
	logger   zerolog.Logger
}

// NewValidator loads every source concurrently. Sets are read-only afterwards.
func NewValidator(ctx context.Context, cfg *ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	if cfg == nil {
		cfg = DefaultValidatorConfig()
	}
	if cfg.MinMatchCount < 1 || cfg.MinMatchCount > len(cfg.Sources) {
		return nil, fmt.Errorf("min match count %d must be between 1 and %d", cfg.MinMatchCount, len(cfg.Sources))
	}

	logger = logger.With().Str("component", "coupon-validator").Logger()

	sets := make([]CouponSet, len(cfg.Sources))
	errs := make([]error, len(cfg.Sources))

	var wg sync.WaitGroup
	for i, source := range cfg.Sources {
		wg.Add(1)
		go func(i int, source string) {
			defer wg.Done()
			sets[i], errs[i] = loader.Load(ctx, source)
		}(i, source)
	}
	wg.Wait()

	total := 0
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to load coupon source %s: %w", cfg.Sources[i], err)
		}
		total += sets[i].Size()
	}

	logger.Info().
		Int("sources", len(sets)).
		Int("min_match_count", cfg.MinMatchCount).
		Int("total_coupons", total).
		Msg("coupon validator initialised")

	return &validator{sets: sets, minMatch: cfg.MinMatchCount, logger: logger}, nil
}

func (v *validator) Validate(ctx context.Context, promoCode string) error {
	if n := len(promoCode); n < minCodeLength || n > maxCodeLength {
		return model.ErrInvalidPromoLength
	}

	matches := v.countMatches(ctx, promoCode)
	if matches < v.minMatch {
		v.logger.Debug().Str("promo_code", promoCode).Int("matches", matches).Msg("promo code rejected")
		return model.ErrInvalidPromoCode
	}
	return nil
}

// countMatches queries every set in parallel and stops as soon as the outcome
// is decided either way.
func (v *validator) countMatches(ctx context.Context, promoCode string) int {
	results := make(chan bool, len(v.sets))
	for _, set := range v.sets {
		go func(s CouponSet) {
			results <- s.Contains(promoCode)
		}(set)
	}

	matches := 0
	for checked := 1; checked <= len(v.sets); checked++ {
		select {
		case found := <-results:
			if found {
				matches++
			}
			remaining := len(v.sets) - checked
			if matches >= v.minMatch || matches+remaining < v.minMatch {
				return matches
			}
		case <-ctx.Done():
			return matches
		}
	}
	return matches
}

func (v *validator) Close() error {
	v.sets = nil
	return nil
}
