package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// Validator decides whether a promo code is accepted.
type Validator interface {
	// Validate fails with model.ErrInvalidPromoLength or model.ErrInvalidPromoCode.
	Validate(ctx context.Context, promoCode string) error

	Close() error
}

// Evaluator turns a promo code into a discount on an order subtotal. The
// result is rounded to the minor unit of currency and never exceeds subtotal.
type Evaluator interface {
	Discount(ctx context.Context, promoCode string, subtotal decimal.Decimal, currency string) (decimal.Decimal, error)
}

// CouponSet is a read-only set of coupon codes.
type CouponSet interface {
	Contains(code string) bool
	Size() int
}

// Loader reads one gzipped coupon source into a CouponSet.
type Loader interface {
	Load(ctx context.Context, source string) (CouponSet, error)
}
