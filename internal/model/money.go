package model

import "github.com/shopspring/decimal"

// Money is an amount in the store currency. It renders in JSON as a string
// with exactly two fraction digits ("80.00", not "80"); decoding accepts
// anything decimal.Decimal does.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}
