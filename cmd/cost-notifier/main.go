package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/config"
	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/export"
	"github.com/tatamiya/aws-cost-notification/internal/adapter/driving/cli"
	"github.com/tatamiya/aws-cost-notification/internal/bootstrap"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
	"github.com/tatamiya/aws-cost-notification/pkg/version"
)

func main() {
	// Inicializa o aplicativo CLI
	app := cli.NewCLIApp(version.Version)

	// Inicializa os repositórios
	app.SetRepositories(config.NewConfigRepository(), export.NewExportRepository())
	app.SetBuilders(
		func(cfg *types.Config) types.ConsoleInterface { return bootstrap.NewConsole(cfg) },
		bootstrap.NewReportUseCase,
	)

	// Executa o aplicativo
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
