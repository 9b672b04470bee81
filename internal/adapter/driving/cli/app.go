package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tatamiya/aws-cost-notification/internal/application/usecase"
	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
	"github.com/tatamiya/aws-cost-notification/internal/domain/service"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
	"github.com/tatamiya/aws-cost-notification/pkg/version"
)

// UseCaseBuilder monta o caso de uso depois que a configuração é carregada.
type UseCaseBuilder func(ctx context.Context, cfg *types.Config, logger types.Logger) (*usecase.ReportUseCase, error)

// ConsoleBuilder cria o console para a configuração carregada.
type ConsoleBuilder func(cfg *types.Config) types.ConsoleInterface

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd      *cobra.Command
	configRepo   repository.ConfigRepository
	exportRepo   repository.ExportRepository
	buildUseCase UseCaseBuilder
	buildConsole ConsoleBuilder
	version      string
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string) *CLIApp {
	app := &CLIApp{
		version: versionStr,
	}

	// Obtem a versão formatada
	formattedVersion := version.FormatVersion()

	rootCmd := &cobra.Command{
		Use:           "cost-notifier",
		Short:         "Posts yesterday's AWS cost to a Slack channel",
		Version:       formattedVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{printf "AWS Cost Notifier version: %s\n" .Version}}`)

	// Adiciona flags de linha de comando
	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	rootCmd.PersistentFlags().StringP("env-file", "e", "", "Path to a .env file (default: ./.env when present)")
	rootCmd.PersistentFlags().StringP("timezone", "z", "", "IANA timezone the report day is computed in (overrides REPORTING_TIMEZONE)")
	rootCmd.PersistentFlags().StringP("period", "p", "", "Reporting period: daily or month_to_date")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or text")

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the report in the terminal without posting it",
		RunE:  app.previewCommand,
	}
	previewCmd.Flags().StringP("report-name", "n", "", "Base name for exported files (without extension); enables export")
	previewCmd.Flags().StringSliceP("report-type", "y", []string{"json"}, "Export types: csv, json, pdf, message")
	previewCmd.Flags().StringP("dir", "d", "", "Directory to save the exported files (default: current directory)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Compute, format and deliver the report once",
			RunE:  app.runCommand,
		},
		previewCmd,
		&cobra.Command{
			Use:   "schedule",
			Short: "Deliver the report on the configured cron schedule until interrupted",
			RunE:  app.scheduleCommand,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "AWS Cost Notifier version: %s\n", version.FormatVersion())
			},
		},
	)

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// SetRepositories define os repositórios usados pelos comandos.
func (app *CLIApp) SetRepositories(configRepo repository.ConfigRepository, exportRepo repository.ExportRepository) {
	app.configRepo = configRepo
	app.exportRepo = exportRepo
}

// SetBuilders define como o console e o caso de uso são montados.
func (app *CLIApp) SetBuilders(buildConsole ConsoleBuilder, buildUseCase UseCaseBuilder) {
	app.buildConsole = buildConsole
	app.buildUseCase = buildUseCase
}

// parseArgs parses command-line arguments into a CLIArgs struct.
func (app *CLIApp) parseArgs(cmd *cobra.Command) (*types.CLIArgs, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config-file")
	envFile, _ := flags.GetString("env-file")
	timezone, _ := flags.GetString("timezone")
	period, _ := flags.GetString("period")
	logLevel, _ := flags.GetString("log-level")
	logFormat, _ := flags.GetString("log-format")
	reportName, _ := flags.GetString("report-name")
	reportType, _ := flags.GetStringSlice("report-type")
	dir, _ := flags.GetString("dir")

	if dir != "" {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = absDir
	}

	return &types.CLIArgs{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Timezone:   timezone,
		Period:     period,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		OutputDir:  dir,
		ReportName: reportName,
		Export:     reportType,
	}, nil
}

// setup carrega a configuração e monta console e caso de uso.
func (app *CLIApp) setup(ctx context.Context, cmd *cobra.Command, dryRun bool) (*types.Config, *types.CLIArgs, types.ConsoleInterface, *usecase.ReportUseCase, error) {
	cliArgs, err := app.parseArgs(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cliArgs.DryRun = dryRun

	cfg, err := app.configRepo.Load(cliArgs)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	console := app.buildConsole(cfg)
	console.Debug("configuration loaded", "config", fmt.Sprintf("%+v", cfg.Redacted()))

	uc, err := app.buildUseCase(ctx, cfg, console)
	if err != nil {
		console.Error("could not initialize", "error", err.Error())
		return nil, nil, nil, nil, err
	}
	return cfg, cliArgs, console, uc, nil
}

// runCommand executa uma entrega e falha quando o relatório não é entregue.
func (app *CLIApp) runCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _, _, uc, err := app.setup(ctx, cmd, false)
	if err != nil {
		return err
	}

	outcome := uc.Run(ctx)
	if !outcome.Succeeded() {
		return fmt.Errorf("report not delivered: %s", outcome)
	}
	return nil
}

// previewCommand renderiza o relatório no terminal sem publicá-lo.
func (app *CLIApp) previewCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	displayWelcomeBanner(cmd.OutOrStdout(), app.version)
	go checkLatestVersion(app.version)

	_, cliArgs, console, uc, err := app.setup(ctx, cmd, true)
	if err != nil {
		return err
	}

	status := console.Status("Fetching cost data...")
	report, message, err := uc.Preview(ctx)
	status.Stop()
	if err != nil {
		console.Error("could not build report", "kind", types.KindOf(err).String(), "error", err.Error())
		return err
	}

	console.Println(renderSummaryTable(console, report.Summary))
	console.Println(console.Panel(message.Header, message.Body+"\n\n"+message.Footer))

	if cliArgs.ReportName != "" {
		return app.export(console, cliArgs, report, message)
	}
	return nil
}

// renderSummaryTable monta a tabela de serviços do resumo.
func renderSummaryTable(console types.ConsoleInterface, summary entity.CostSummary) string {
	table := console.CreateTable()
	table.AddColumn("Service")
	table.AddColumn("Cost")
	table.AddColumn("Share")

	for _, dc := range summary.TopContributors() {
		share := "-"
		if summary.Total.IsPositive() {
			share = dc.Amount.Div(summary.Total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
		}
		table.AddRow(dc.Dimension, service.FormatAmount(dc.Amount, summary.Currency), share)
	}
	table.AddRow(color.New(color.Bold).Sprint("Total"), service.FormatAmount(summary.Total, summary.Currency), "")

	return table.Render()
}

// export grava os arquivos pedidos em --report-type.
func (app *CLIApp) export(console types.ConsoleInterface, cliArgs *types.CLIArgs, report entity.Report, message entity.NotificationMessage) error {
	for _, reportType := range cliArgs.Export {
		var (
			path string
			err  error
		)
		switch strings.ToLower(strings.TrimSpace(reportType)) {
		case "csv":
			path, err = app.exportRepo.ExportSummaryToCSV(report.Summary, cliArgs.ReportName, cliArgs.OutputDir)
		case "json":
			path, err = app.exportRepo.ExportSummaryToJSON(report, cliArgs.ReportName, cliArgs.OutputDir)
		case "pdf":
			path, err = app.exportRepo.ExportReportToPDF(report, cliArgs.ReportName, cliArgs.OutputDir)
		case "message":
			path, err = app.exportRepo.ExportMessageToJSON(message, cliArgs.ReportName+"_message", cliArgs.OutputDir)
		default:
			return fmt.Errorf("unsupported report type %q", reportType)
		}
		if err != nil {
			console.Error("export failed", "type", reportType, "error", err.Error())
			return err
		}
		console.LogSuccess("report exported", "type", reportType, "path", path)
	}
	return nil
}
