package entity

import "github.com/shopspring/decimal"

// BudgetInfo represents a budget with actual and forecasted spend.
type BudgetInfo struct {
	Name     string          `json:"name"`
	Limit    decimal.Decimal `json:"limit"`
	Actual   decimal.Decimal `json:"actual"`
	Forecast decimal.Decimal `json:"forecast,omitempty"`
	Currency string          `json:"currency"`
}
