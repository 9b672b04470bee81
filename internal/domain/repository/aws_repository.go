package repository

import (
	"context"
	"iter"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

// CostRepository defines the interface for the cost-reporting API.
type CostRepository interface {
	// Pages yields the raw cost pages of a period in API order.
	Pages(ctx context.Context, period entity.ReportingPeriod) iter.Seq2[entity.CostPage, error]
	// Fetch drains Pages into a single slice.
	Fetch(ctx context.Context, period entity.ReportingPeriod) ([]entity.CostRecord, error)
}

// AccountRepository provides the account context shown next to a report.
// Both lookups are optional for the pipeline.
type AccountRepository interface {
	GetAccountID(ctx context.Context) (string, error)
	GetBudgets(ctx context.Context, accountID string) ([]entity.BudgetInfo, error)
}
