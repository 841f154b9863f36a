package model

import (
	"github.com/shopspring/decimal"
)

// Owner keys a balance: one of the two partners or the shared pool.
type Owner string

const SharedOwner Owner = "shared"

// DefaultPartners are the individual owners used when none are configured.
var DefaultPartners = []Owner{"arthur", "valeria"}

type Balances map[Owner]decimal.Decimal

// NewBalances returns zero balances for the given partners plus the shared pool.
func NewBalances(partners ...Owner) Balances {
	b := make(Balances, len(partners)+1)
	for _, p := range partners {
		b[p] = decimal.Zero
	}
	b[SharedOwner] = decimal.Zero
	return b
}

func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (b Balances) Has(o Owner) bool {
	_, ok := b[o]
	return ok
}

func (b Balances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// Apply returns a copy with delta added to the owner's balance.
func (b Balances) Apply(o Owner, delta decimal.Decimal) Balances {
	out := b.Clone()
	out[o] = out[o].Add(delta)
	return out
}
