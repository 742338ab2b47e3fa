package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue product. Stock is the available quantity of the
// product-level stock unit; variants carry their own stock.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Stock     int             `json:"stock" db:"stock"`
	Variants  []Variant       `json:"variants,omitempty"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}

// Variant is a purchasable variation of a product. A nil Price means the
// product price applies.
type Variant struct {
	ID        string           `json:"id" db:"id"`
	ProductID string           `json:"productId" db:"product_id"`
	Name      string           `json:"name" db:"name"`
	Price     *decimal.Decimal `json:"price,omitempty" db:"price"`
	Stock     int              `json:"stock" db:"stock"`
}

// StockItem is a quantity of one stock unit, identified by product and
// optional variant.
type StockItem struct {
	ProductID string
	VariantID *string
	Quantity  int
}

// VariantKey returns the variant ID or an empty string for product-level units.
func (s StockItem) VariantKey() string {
	if s.VariantID == nil {
		return ""
	}
	return *s.VariantID
}

// Key uniquely identifies the stock unit.
func (s StockItem) Key() string {
	return s.ProductID + "/" + s.VariantKey()
}

// StockUnit is a read snapshot of a stock unit used for pricing.
type StockUnit struct {
	ProductID string
	VariantID *string
	Available int
	UnitPrice decimal.Decimal
}
