// Package bootstrap wires the adapters behind the report use case from a
// loaded configuration. Both the CLI and the Lambda entry point use it.
package bootstrap

import (
	"context"

	awsadapter "github.com/tatamiya/aws-cost-notification/internal/adapter/driven/aws"
	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/metrics"
	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/slack"
	"github.com/tatamiya/aws-cost-notification/internal/application/usecase"
	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/service"
	"github.com/tatamiya/aws-cost-notification/internal/shared/retry"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
	"github.com/tatamiya/aws-cost-notification/pkg/console"
)

// NewConsole cria o console/logger configurado.
func NewConsole(cfg *types.Config) *console.Console {
	return console.NewConsole(console.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// NewReportUseCase monta o caso de uso com os adaptadores reais.
func NewReportUseCase(ctx context.Context, cfg *types.Config, logger types.Logger) (*usecase.ReportUseCase, error) {
	periods, err := service.NewPeriodCalculator(cfg.Timezone, entity.Granularity(cfg.Period))
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsadapter.LoadAWSConfig(ctx, cfg.AWSProfile)
	if err != nil {
		return nil, err
	}
	clients := awsadapter.NewClients(awsCfg)

	costRepo := awsadapter.NewCostSource(clients.CostExplorer, awsadapter.CostSourceOptions{
		CallTimeout:       cfg.CostAPITimeout(),
		MaxPages:          cfg.MaxPages,
		RequestsPerSecond: cfg.CostAPIRequestsPerSecond,
		Retry:             retry.DefaultPolicy(cfg.CostAPIMaxRetries),
		Logger:            logger,
	})
	accountRepo := awsadapter.NewAccountRepository(clients.STS, clients.Budgets)

	notifier := slack.NewNotifier(cfg.WebhookURL,
		slack.WithAttemptTimeout(cfg.WebhookTimeout()),
		slack.WithDeliveryDeadline(cfg.DeliveryDeadline()),
		slack.WithRetryPolicy(retry.DefaultPolicy(cfg.WebhookMaxRetries)),
		slack.WithLogger(logger),
	)

	metricsRepo := metrics.NewPushgatewayMetrics(cfg.PushgatewayURL, cfg.Timezone, nil)

	return usecase.NewReportUseCase(
		costRepo,
		accountRepo,
		notifier,
		metricsRepo,
		periods,
		service.NewFormatter(cfg.TopN),
		logger,
		usecase.ReportOptions{
			ExecutionBudget: cfg.ExecutionBudget(),
			SafetyMargin:    cfg.SafetyMargin(),
			MinStageBudget:  cfg.MinStageBudget(),
		},
	), nil
}
