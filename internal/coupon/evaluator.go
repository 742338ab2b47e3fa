package coupon

import (
	"context"
	"fmt"

	"kart-commerce/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type percentEvaluator struct {
	validator Validator
	percent   decimal.Decimal
}

// NewPercentEvaluator grants percent off the subtotal for every code the
// validator accepts. A nil validator rejects every code.
func NewPercentEvaluator(validator Validator, percent decimal.Decimal) (Evaluator, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return nil, fmt.Errorf("discount percent %s must be between 0 and 100", percent)
	}
	return &percentEvaluator{validator: validator, percent: percent}, nil
}

// Discount returns zero for an empty code.
func (e *percentEvaluator) Discount(ctx context.Context, promoCode string, subtotal decimal.Decimal, currency string) (decimal.Decimal, error) {
	if promoCode == "" {
		return decimal.Zero, nil
	}
	if e.validator == nil {
		return decimal.Zero, model.ErrInvalidPromoCode
	}
	if err := e.validator.Validate(ctx, promoCode); err != nil {
		return decimal.Zero, err
	}

	discount := subtotal.Mul(e.percent).Div(hundred).Round(model.CurrencyExponent(currency))
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount, nil
}
