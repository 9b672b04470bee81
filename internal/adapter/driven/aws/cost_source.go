package aws

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
	"github.com/tatamiya/aws-cost-notification/internal/shared/retry"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

const (
	metricAmortizedCost = "AmortizedCost"
	dimensionService    = "SERVICE"
	opCostExplorer      = "cost explorer"
)

// CostExplorerAPI is the part of the Cost Explorer client used by CostSource.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// CostSourceOptions tunes the calls made by CostSource.
type CostSourceOptions struct {
	CallTimeout       time.Duration
	MaxPages          int
	RequestsPerSecond float64
	Retry             retry.Policy
	Logger            types.Logger
}

// CostSource implementa o CostRepository sobre o Cost Explorer.
type CostSource struct {
	client  CostExplorerAPI
	limiter *rate.Limiter
	opts    CostSourceOptions
	logger  types.Logger
}

// NewCostSource cria uma nova implementação do CostRepository.
func NewCostSource(client CostExplorerAPI, opts CostSourceOptions) repository.CostRepository {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 15 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	logger := opts.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}

	return &CostSource{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
		logger:  logger,
	}
}

// Pages yields one CostPage per API response. Iteration stops at the first
// error, which is yielded with an empty page.
func (s *CostSource) Pages(ctx context.Context, period entity.ReportingPeriod) iter.Seq2[entity.CostPage, error] {
	return func(yield func(entity.CostPage, error) bool) {
		var token *string
		seen := make(map[string]bool)

		for page := 1; ; page++ {
			if page > s.opts.MaxPages {
				yield(entity.CostPage{}, types.NewPermanentError(opCostExplorer,
					fmt.Errorf("%w (%d)", types.ErrTooManyPages, s.opts.MaxPages)))
				return
			}

			out, err := s.getPage(ctx, period, token, page)
			if err != nil {
				yield(entity.CostPage{}, err)
				return
			}

			costPage, err := toCostPage(out, period)
			if err != nil {
				yield(entity.CostPage{}, err)
				return
			}
			if !yield(costPage, nil) || !costPage.HasNext() {
				return
			}

			if seen[costPage.NextToken] {
				yield(entity.CostPage{}, types.NewPermanentError(opCostExplorer,
					fmt.Errorf("%w: pagination token repeated", types.ErrDataIntegrity)))
				return
			}
			seen[costPage.NextToken] = true
			token = out.NextPageToken
		}
	}
}

// Fetch drains Pages.
func (s *CostSource) Fetch(ctx context.Context, period entity.ReportingPeriod) ([]entity.CostRecord, error) {
	var records []entity.CostRecord
	for page, err := range s.Pages(ctx, period) {
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
	}
	return records, nil
}

func (s *CostSource) getPage(ctx context.Context, period entity.ReportingPeriod, token *string, page int) (*costexplorer.GetCostAndUsageOutput, error) {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &ceTypes.DateInterval{
			Start: aws.String(period.APIStart()),
			End:   aws.String(period.APIEnd()),
		},
		Granularity: ceTypes.GranularityDaily,
		Metrics:     []string{metricAmortizedCost},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: aws.String(dimensionService)},
		},
		NextPageToken: token,
	}

	var out *costexplorer.GetCostAndUsageOutput
	retries, err := retry.Do(ctx, s.opts.Retry, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return types.NewTimeoutError(opCostExplorer, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()

		result, err := s.client.GetCostAndUsage(callCtx, input)
		if err != nil {
			return classifyError(opCostExplorer, err)
		}
		out = result
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		s.logger.Warn("cost explorer call failed, retrying",
			"page", page, "attempt", attempt, "wait", wait.String(), "error", err.Error())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cost explorer page fetched",
		"page", page, "retries", retries, "results", len(out.ResultsByTime))
	return out, nil
}

func toCostPage(out *costexplorer.GetCostAndUsageOutput, period entity.ReportingPeriod) (entity.CostPage, error) {
	page := entity.CostPage{NextToken: aws.ToString(out.NextPageToken)}

	for _, result := range out.ResultsByTime {
		if result.TimePeriod == nil {
			return entity.CostPage{}, integrityError("result without time period")
		}
		day, err := entity.ParseAPIDate(aws.ToString(result.TimePeriod.Start))
		if err != nil {
			return entity.CostPage{}, integrityError("bad result date %q", aws.ToString(result.TimePeriod.Start))
		}
		if !period.Contains(day) {
			return entity.CostPage{}, integrityError("result date %s outside %s", day, period)
		}

		for _, group := range result.Groups {
			if len(group.Keys) == 0 {
				return entity.CostPage{}, integrityError("group without keys on %s", day)
			}
			metric, ok := group.Metrics[metricAmortizedCost]
			if !ok || metric.Amount == nil {
				return entity.CostPage{}, integrityError("group %q has no %s", group.Keys[0], metricAmortizedCost)
			}
			amount, err := decimal.NewFromString(aws.ToString(metric.Amount))
			if err != nil {
				return entity.CostPage{}, integrityError("group %q amount %q", group.Keys[0], aws.ToString(metric.Amount))
			}

			unit := aws.ToString(metric.Unit)
			if unit == "" {
				if amount.IsZero() {
					continue
				}
				return entity.CostPage{}, integrityError("group %q has an amount but no unit", group.Keys[0])
			}

			page.Records = append(page.Records, entity.CostRecord{
				Dimension: group.Keys[0],
				Amount:    amount,
				Currency:  unit,
				Date:      day,
			})
		}
	}

	return page, nil
}

func integrityError(format string, args ...any) error {
	return types.NewPermanentError(opCostExplorer,
		fmt.Errorf("%w: %s", types.ErrDataIntegrity, fmt.Sprintf(format, args...)))
}
