package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
	"github.com/tatamiya/aws-cost-notification/internal/domain/service"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// Pipeline states, as they appear in the "state" log field.
const (
	stateStart          = "start"
	statePeriodComputed = "period_computed"
	stateCostFetched    = "cost_fetched"
	stateAggregated     = "aggregated"
	stateFormatted      = "formatted"
	stateDelivered      = "delivered"
	stateFailed         = "failed"
)

const (
	defaultEnrichTimeout  = 3 * time.Second
	defaultMetricsTimeout = 2 * time.Second
)

// ReportOptions bounds the time a run may take.
type ReportOptions struct {
	// ExecutionBudget caps the whole run, even without a deadline on ctx.
	ExecutionBudget time.Duration
	// SafetyMargin is kept free before the deadline so the run can report.
	SafetyMargin time.Duration
	// MinStageBudget is the least time a slow stage is started with.
	MinStageBudget time.Duration
	// EnrichTimeout bounds the optional account lookups.
	EnrichTimeout time.Duration
}

// ReportUseCase runs one invocation of the notifier: compute the period,
// fetch and aggregate costs, render the message and deliver it.
type ReportUseCase struct {
	costRepo    repository.CostRepository
	accountRepo repository.AccountRepository
	notifier    repository.NotifierRepository
	metrics     repository.MetricsRepository
	periods     *service.PeriodCalculator
	formatter   *service.Formatter
	logger      types.Logger
	opts        ReportOptions
	now         func() time.Time
}

// NewReportUseCase creates a new report use case. accountRepo and metrics
// are optional.
func NewReportUseCase(
	costRepo repository.CostRepository,
	accountRepo repository.AccountRepository,
	notifier repository.NotifierRepository,
	metrics repository.MetricsRepository,
	periods *service.PeriodCalculator,
	formatter *service.Formatter,
	logger types.Logger,
	opts ReportOptions,
) *ReportUseCase {
	if opts.EnrichTimeout <= 0 {
		opts.EnrichTimeout = defaultEnrichTimeout
	}
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &ReportUseCase{
		costRepo:    costRepo,
		accountRepo: accountRepo,
		notifier:    notifier,
		metrics:     metrics,
		periods:     periods,
		formatter:   formatter,
		logger:      logger,
		opts:        opts,
		now:         time.Now,
	}
}

// Run executes the pipeline once. Every path ends in an outcome; nothing is
// sent to the channel when an earlier stage fails.
func (uc *ReportUseCase) Run(ctx context.Context) entity.DeliveryOutcome {
	started := time.Now()
	runCtx, cancel := uc.withBudget(ctx, started)
	defer cancel()

	outcome, summary, pages := uc.run(runCtx)

	uc.record(ctx, repository.RunRecord{
		Outcome:  outcome,
		Summary:  summary,
		Pages:    pages,
		Started:  started,
		Duration: time.Since(started),
	})
	return outcome
}

func (uc *ReportUseCase) run(ctx context.Context) (entity.DeliveryOutcome, *entity.CostSummary, int) {
	report, pages, err := uc.build(ctx)
	if err != nil {
		return uc.fail(ctx, err), nil, pages
	}

	message := uc.formatter.FormatReport(report)
	uc.logger.Info("message formatted", "state", stateFormatted, "report_id", message.ReportID)

	if err := uc.checkBudget(ctx, "delivery"); err != nil {
		return uc.fail(ctx, err), &report.Summary, pages
	}

	outcome := uc.notifier.Deliver(ctx, message)
	if outcome.Succeeded() {
		uc.logger.Info("report delivered",
			"state", stateDelivered, "outcome", outcome.String(), "retries", outcome.Retries, "report_id", message.ReportID)
	} else {
		kv := []any{"state", stateFailed, "outcome", outcome.String(), "retries", outcome.Retries, "report_id", message.ReportID}
		if outcome.Err != nil {
			kv = append(kv, "error", outcome.Err.Error())
		}
		uc.logger.Error("report delivery failed", kv...)
	}
	return outcome, &report.Summary, pages
}

// Preview builds the report and message without delivering anything.
func (uc *ReportUseCase) Preview(ctx context.Context) (entity.Report, entity.NotificationMessage, error) {
	runCtx, cancel := uc.withBudget(ctx, time.Now())
	defer cancel()

	report, _, err := uc.build(runCtx)
	if err != nil {
		return entity.Report{}, entity.NotificationMessage{}, err
	}
	message := uc.formatter.FormatReport(report)
	uc.logger.Info("message formatted", "state", stateFormatted, "report_id", message.ReportID)
	return report, message, nil
}

func (uc *ReportUseCase) build(ctx context.Context) (entity.Report, int, error) {
	uc.logger.Info("report run started", "state", stateStart)

	period := uc.periods.Compute(uc.now())
	uc.logger.Info("reporting period computed",
		"state", statePeriodComputed, "period", period.String(),
		"start", period.APIStart(), "end", period.APIEnd())

	if err := uc.checkBudget(ctx, "fetch"); err != nil {
		return entity.Report{}, 0, err
	}

	records, pages, err := uc.fetch(ctx, period)
	if err != nil {
		return entity.Report{}, pages, err
	}
	uc.logger.Info("cost data fetched", "state", stateCostFetched, "records", len(records), "pages", pages)

	summary, err := service.Aggregate(records, period)
	if err != nil {
		return entity.Report{}, pages, err
	}
	uc.logger.Info("costs aggregated",
		"state", stateAggregated, "total", summary.Total.String(),
		"currency", summary.Currency, "services", len(summary.ByDimension))

	report := entity.Report{Summary: summary}
	uc.enrich(ctx, &report)
	return report, pages, nil
}

func (uc *ReportUseCase) fetch(ctx context.Context, period entity.ReportingPeriod) ([]entity.CostRecord, int, error) {
	var records []entity.CostRecord
	pages := 0
	for page, err := range uc.costRepo.Pages(ctx, period) {
		if err != nil {
			return nil, pages, err
		}
		pages++
		records = append(records, page.Records...)
		uc.logger.Debug("cost page received", "page", pages, "records", len(page.Records))
	}
	return records, pages, nil
}

// enrich adds the account id and budgets. Failures only cost the extras.
func (uc *ReportUseCase) enrich(ctx context.Context, report *entity.Report) {
	if uc.accountRepo == nil {
		return
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < uc.opts.MinStageBudget+uc.opts.EnrichTimeout {
		uc.logger.Warn("skipping account lookup, execution budget is low")
		return
	}

	ectx, cancel := context.WithTimeout(ctx, uc.opts.EnrichTimeout)
	defer cancel()

	accountID, err := uc.accountRepo.GetAccountID(ectx)
	if err != nil {
		uc.logger.Warn("could not resolve account id", "error", err.Error())
		return
	}
	report.AccountID = accountID

	budgets, err := uc.accountRepo.GetBudgets(ectx, accountID)
	if err != nil {
		uc.logger.Warn("could not load budgets", "error", err.Error())
		return
	}
	report.Budgets = budgets
}

// withBudget derives the run deadline: the earlier of ctx's deadline and
// the execution budget, minus the safety margin.
func (uc *ReportUseCase) withBudget(ctx context.Context, started time.Time) (context.Context, context.CancelFunc) {
	var deadline time.Time
	if uc.opts.ExecutionBudget > 0 {
		deadline = started.Add(uc.opts.ExecutionBudget)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, deadline.Add(-uc.opts.SafetyMargin))
}

func (uc *ReportUseCase) checkBudget(ctx context.Context, stage string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	if remaining := time.Until(deadline); remaining < uc.opts.MinStageBudget || remaining <= 0 {
		return types.NewTimeoutError(stage, fmt.Errorf("%w: %s left, %s needs at least %s",
			types.ErrBudgetExhausted, remaining.Round(time.Millisecond), stage, uc.opts.MinStageBudget))
	}
	return nil
}

func (uc *ReportUseCase) fail(ctx context.Context, err error) entity.DeliveryOutcome {
	if !types.IsKind(err, types.KindTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = types.NewTimeoutError("run", err)
	}
	kind := types.KindOf(err)
	uc.logger.Error("report run failed", "state", stateFailed, "kind", kind.String(), "error", err.Error())
	return entity.Failed(kind.String(), err)
}

func (uc *ReportUseCase) record(ctx context.Context, run repository.RunRecord) {
	if uc.metrics == nil {
		return
	}
	mctx, cancel := context.WithTimeout(ctx, defaultMetricsTimeout)
	defer cancel()

	if err := uc.metrics.Record(mctx, run); err != nil {
		uc.logger.Warn("could not push run metrics", "error", err.Error())
	}
}
