package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultGoalColor = "#3b82f6"

type Goal struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Target    decimal.Decimal `json:"target"`
	Current   decimal.Decimal `json:"current"`
	Color     string          `json:"color"`
	Deadline  *time.Time      `json:"deadline,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// WithMoney returns a copy of the goal with amount added, clamped at the target.
func (g Goal) WithMoney(amount decimal.Decimal) Goal {
	g.Current = decimal.Min(g.Current.Add(amount), g.Target)
	return g
}

// Progress is current/target as a percentage.
func (g Goal) Progress() decimal.Decimal {
	if !g.Target.IsPositive() {
		return decimal.Zero
	}
	return g.Current.Div(g.Target).Mul(decimal.NewFromInt(100))
}
