package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/tatamiya/aws-cost-notification/internal/application/usecase"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

var errMissingSchedule = errors.New("schedule is required for the schedule command (COST_NOTIFIER_SCHEDULE)")

// cronLogger adapta o types.Logger para a interface cron.Logger.
type cronLogger struct {
	logger types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err.Error()}, keysAndValues...)...)
}

// scheduleCommand entrega o relatório no horário configurado até receber SIGINT/SIGTERM.
func (app *CLIApp) scheduleCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _, console, uc, err := app.setup(ctx, cmd, false)
	if err != nil {
		return err
	}
	if cfg.Schedule == "" {
		return types.NewConfigurationError("schedule", errMissingSchedule)
	}

	scheduler, err := newScheduler(ctx, cfg, uc, console)
	if err != nil {
		return err
	}

	scheduler.Start()
	console.Info("scheduler started", "schedule", cfg.Schedule, "timezone", cfg.Timezone)

	<-ctx.Done()
	console.Info("stopping scheduler")
	<-scheduler.Stop().Done()
	return nil
}

// newScheduler registra a entrega no cron, no fuso horário do relatório.
// Uma execução nunca se sobrepõe à anterior.
func newScheduler(ctx context.Context, cfg *types.Config, uc *usecase.ReportUseCase, logger types.Logger) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, types.NewConfigurationError("schedule", types.ErrInvalidTimezone)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err = c.AddFunc(cfg.Schedule, func() {
		outcome := uc.Run(ctx)
		if !outcome.Succeeded() {
			logger.Error("scheduled report not delivered", "outcome", outcome.String())
		}
	})
	if err != nil {
		return nil, types.NewConfigurationError("schedule", fmt.Errorf("%w: schedule: invalid cron expression", types.ErrInvalidConfig))
	}
	return c, nil
}
