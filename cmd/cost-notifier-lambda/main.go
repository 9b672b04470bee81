package main

import (
	"context"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/config"
	"github.com/tatamiya/aws-cost-notification/internal/bootstrap"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

func main() {
	lambda.Start(newHandler(context.Background()).Handle)
}

func newHandler(ctx context.Context) *handler {
	cfg, err := config.NewConfigRepository().Load(&types.CLIArgs{})
	if err != nil {
		return &handler{initErr: err}
	}

	logger := bootstrap.NewConsole(cfg)
	uc, err := bootstrap.NewReportUseCase(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not initialize", "error", err.Error())
		return &handler{initErr: err}
	}
	return &handler{runner: uc}
}
