package entity

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is reported when a period has no billed records.
const DefaultCurrency = "USD"

// CostRecord is the spend of one dimension (service) on one date.
type CostRecord struct {
	Dimension string          `json:"dimension"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Date      civil.Date      `json:"date"`
}

// CostPage is one response of the cost API.
type CostPage struct {
	Records   []CostRecord `json:"records"`
	NextToken string       `json:"next_token,omitempty"`
}

// HasNext reports whether another page follows.
func (p CostPage) HasNext() bool {
	return p.NextToken != ""
}

// DimensionCost represents a cost amount for a specific dimension (AWS service).
type DimensionCost struct {
	Dimension string          `json:"dimension"`
	Amount    decimal.Decimal `json:"amount"`
}

// CostSummary is the aggregated spend of a reporting period.
type CostSummary struct {
	Total       decimal.Decimal            `json:"total"`
	Currency    string                     `json:"currency"`
	ByDimension map[string]decimal.Decimal `json:"by_dimension"`
	Period      ReportingPeriod            `json:"period"`
}

// TopContributors returns every dimension ordered by descending amount. Ties
// are broken by dimension name so the order is stable.
func (s CostSummary) TopContributors() []DimensionCost {
	ranked := make([]DimensionCost, 0, len(s.ByDimension))
	for dim, amount := range s.ByDimension {
		ranked = append(ranked, DimensionCost{Dimension: dim, Amount: amount})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Amount.Cmp(ranked[j].Amount); c != 0 {
			return c > 0
		}
		return ranked[i].Dimension < ranked[j].Dimension
	})

	return ranked
}

// Report is a CostSummary plus the account context it was produced for.
type Report struct {
	Summary   CostSummary  `json:"summary"`
	AccountID string       `json:"account_id,omitempty"`
	Budgets   []BudgetInfo `json:"budgets,omitempty"`
}
