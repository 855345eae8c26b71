package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are charged in whole units by both gateways
var zeroDecimalCurrencies = map[string]bool{
	"XOF": true, "XAF": true, "JPY": true, "KRW": true,
	"GNF": true, "RWF": true, "UGX": true, "VND": true,
}

// IsZeroDecimal reports whether currency has no minor unit
func IsZeroDecimal(currency string) bool {
	return zeroDecimalCurrencies[strings.ToUpper(currency)]
}

// ToMinorUnits converts an amount to the smallest currency unit, rounding half up
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	if IsZeroDecimal(currency) {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}

// LineTotal returns price × quantity
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
