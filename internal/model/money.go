package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// NormaliseCurrency lower-cases an ISO 4217 code.
func NormaliseCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

// CurrencyExponent returns the number of minor-unit digits of a currency.
func CurrencyExponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[NormaliseCurrency(currency)]; ok {
		return 0
	}
	return 2
}

// ToMinorUnits converts a decimal amount to the smallest currency unit,
// rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits converts an amount in the smallest currency unit back to a
// decimal amount.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -CurrencyExponent(currency))
}
