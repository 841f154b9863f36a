package model

import "github.com/shopspring/decimal"

// CategoryPalette is the rotation of colors assigned to new categories.
var CategoryPalette = []string{"#ef4444", "#3b82f6", "#8b5cf6", "#f59e0b", "#10b981", "#06b6d4"}

type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Limit decimal.Decimal `json:"limit"`
	Color string          `json:"color"`
}

// HasLimit reports whether the category is capped; a zero limit means no limit.
func (c Category) HasLimit() bool {
	return c.Limit.IsPositive()
}

func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Groceries", Limit: decimal.NewFromInt(1200), Color: "#ef4444"},
		{ID: "2", Name: "Transport", Limit: decimal.NewFromInt(500), Color: "#3b82f6"},
		{ID: "3", Name: "Entertainment", Limit: decimal.NewFromInt(600), Color: "#8b5cf6"},
		{ID: "4", Name: "Utilities", Limit: decimal.NewFromInt(600), Color: "#f59e0b"},
		{ID: "5", Name: "Work", Limit: decimal.Zero, Color: "#10b981"},
	}
}
