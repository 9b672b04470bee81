package service

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// PeriodCalculator derives the reporting period from the current instant.
type PeriodCalculator struct {
	timezone    string
	location    *time.Location
	granularity entity.Granularity
}

// NewPeriodCalculator validates the timezone and granularity up front so a bad
// configuration never reaches the cost API.
func NewPeriodCalculator(timezone string, granularity entity.Granularity) (*PeriodCalculator, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, types.NewConfigurationError("period", types.ErrMissingTimezone)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, types.NewConfigurationError("period",
			fmt.Errorf("%w %q: %v", types.ErrInvalidTimezone, timezone, err))
	}

	switch granularity {
	case "":
		granularity = entity.GranularityDaily
	case entity.GranularityDaily, entity.GranularityMonthToDate:
	default:
		return nil, types.NewConfigurationError("period",
			fmt.Errorf("%w: unknown period granularity %q", types.ErrInvalidConfig, granularity))
	}

	return &PeriodCalculator{
		timezone:    timezone,
		location:    loc,
		granularity: granularity,
	}, nil
}

// Compute returns the period ending yesterday, local to the configured timezone.
func (c *PeriodCalculator) Compute(now time.Time) entity.ReportingPeriod {
	today := civil.DateOf(now.In(c.location))
	yesterday := today.AddDays(-1)

	start := yesterday
	if c.granularity == entity.GranularityMonthToDate {
		start = civil.Date{Year: yesterday.Year, Month: yesterday.Month, Day: 1}
	}

	return entity.ReportingPeriod{
		Start:    start,
		End:      yesterday,
		Timezone: c.timezone,
		Location: c.location,
	}
}

// Timezone returns the IANA name the calculator was built with.
func (c *PeriodCalculator) Timezone() string {
	return c.timezone
}
