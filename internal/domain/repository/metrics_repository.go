package repository

import (
	"context"
	"time"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

// RunRecord describes one finished invocation for metrics.
type RunRecord struct {
	Outcome  entity.DeliveryOutcome
	Summary  *entity.CostSummary
	Pages    int
	Started  time.Time
	Duration time.Duration
}

// MetricsRepository publishes run metrics. Implementations must not fail the run.
type MetricsRepository interface {
	Record(ctx context.Context, run RunRecord) error
}
