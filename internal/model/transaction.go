package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

type Transaction struct {
	ID          string          `json:"id"`
	Owner       Owner           `json:"user"`
	Kind        TransactionKind `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Signed is the effect of the transaction on its owner's balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// InMonth reports whether the transaction was created in the calendar month of ref.
func (t Transaction) InMonth(ref time.Time) bool {
	created := t.CreatedAt.In(ref.Location())
	return created.Year() == ref.Year() && created.Month() == ref.Month()
}
