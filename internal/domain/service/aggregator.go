package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// Aggregate reduces per-dimension, per-day records to a summary. The result
// does not depend on record order. Records in more than one currency are
// rejected rather than summed.
func Aggregate(records []entity.CostRecord, period entity.ReportingPeriod) (entity.CostSummary, error) {
	summary := entity.CostSummary{
		Total:       decimal.Zero,
		Currency:    entity.DefaultCurrency,
		ByDimension: make(map[string]decimal.Decimal),
		Period:      period,
	}
	if len(records) == 0 {
		return summary, nil
	}

	currency := ""
	for _, r := range records {
		code := strings.ToUpper(strings.TrimSpace(r.Currency))
		if code == "" {
			return entity.CostSummary{}, types.NewPermanentError("aggregate",
				fmt.Errorf("%w: record for %q on %s has no currency", types.ErrDataIntegrity, r.Dimension, r.Date))
		}
		if currency == "" {
			currency = code
		} else if code != currency {
			return entity.CostSummary{}, types.NewPermanentError("aggregate",
				fmt.Errorf("%w (%s and %s)", types.ErrMixedCurrency, currency, code))
		}

		summary.ByDimension[r.Dimension] = summary.ByDimension[r.Dimension].Add(r.Amount)
		summary.Total = summary.Total.Add(r.Amount)
	}
	summary.Currency = currency

	return summary, nil
}
