package model

import "github.com/shopspring/decimal"

const BaseCurrency = "PLN"

// Rates maps a currency code to units of base currency per one foreign unit.
type Rates map[string]decimal.Decimal

func DefaultRates() Rates {
	return Rates{
		"EUR": decimal.RequireFromString("4.65"),
		"USD": decimal.RequireFromString("4.28"),
		"UAH": decimal.RequireFromString("0.103"),
		"PLN": decimal.NewFromInt(1),
	}
}

func (r Rates) Clone() Rates {
	out := make(Rates, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
