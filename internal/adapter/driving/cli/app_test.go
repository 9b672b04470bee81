package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/tatamiya/aws-cost-notification/internal/adapter/driven/export"
	"github.com/tatamiya/aws-cost-notification/internal/application/usecase"
	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/service"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

type fakeConfigRepo struct {
	cfg  *types.Config
	err  error
	args *types.CLIArgs
}

func (f *fakeConfigRepo) LoadConfigFile(string) (*types.Config, error) { return f.cfg, f.err }

func (f *fakeConfigRepo) Load(args *types.CLIArgs) (*types.Config, error) {
	f.args = args
	return f.cfg, f.err
}

type fakeCostRepo struct {
	err error
}

func (f *fakeCostRepo) Pages(ctx context.Context, period entity.ReportingPeriod) iter.Seq2[entity.CostPage, error] {
	return func(yield func(entity.CostPage, error) bool) {
		if f.err != nil {
			yield(entity.CostPage{}, f.err)
			return
		}
		yield(entity.CostPage{Records: []entity.CostRecord{
			{Dimension: "Amazon EC2", Amount: decimal.RequireFromString("7.50"), Currency: "USD", Date: period.Start},
			{Dimension: "Amazon S3", Amount: decimal.RequireFromString("2.50"), Currency: "USD", Date: period.Start},
		}}, nil)
	}
}

func (f *fakeCostRepo) Fetch(ctx context.Context, period entity.ReportingPeriod) ([]entity.CostRecord, error) {
	var out []entity.CostRecord
	for page, err := range f.Pages(ctx, period) {
		if err != nil {
			return nil, err
		}
		out = append(out, page.Records...)
	}
	return out, nil
}

type fakeNotifier struct {
	outcome entity.DeliveryOutcome
	sent    []entity.NotificationMessage
}

func (f *fakeNotifier) Deliver(ctx context.Context, m entity.NotificationMessage) entity.DeliveryOutcome {
	f.sent = append(f.sent, m)
	return f.outcome
}

type fakeConsole struct {
	types.NopLogger
	out bytes.Buffer
}

type nopStatus struct{}

func (nopStatus) Update(string) {}
func (nopStatus) Stop()         {}

type fakeTable struct{ rows [][]string }

func (t *fakeTable) AddColumn(string, ...interface{}) {}
func (t *fakeTable) AddRow(cells ...interface{}) {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = fmt.Sprint(c)
	}
	t.rows = append(t.rows, row)
}
func (t *fakeTable) Render() string {
	var b strings.Builder
	for _, r := range t.rows {
		b.WriteString(strings.Join(r, " | ") + "\n")
	}
	return b.String()
}

func (c *fakeConsole) Print(a ...interface{})                 { fmt.Fprint(&c.out, a...) }
func (c *fakeConsole) Printf(format string, a ...interface{}) { fmt.Fprintf(&c.out, format, a...) }
func (c *fakeConsole) Println(a ...interface{})               { fmt.Fprintln(&c.out, a...) }
func (c *fakeConsole) LogSuccess(string, ...any)              {}
func (c *fakeConsole) Status(string) types.StatusHandle       { return nopStatus{} }
func (c *fakeConsole) CreateTable() types.TableInterface      { return &fakeTable{} }
func (c *fakeConsole) Panel(title, content string) string     { return title + "\n" + content }

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.Timezone = "Asia/Tokyo"
	cfg.WebhookURL = "https://hooks.slack.com/services/T000/B000/XXXX"
	return &cfg
}

func newTestApp(t *testing.T, cfg *types.Config, cost *fakeCostRepo, notifier *fakeNotifier) (*CLIApp, *fakeConfigRepo, *fakeConsole) {
	t.Helper()
	app := NewCLIApp("1.0.0-dev")
	configRepo := &fakeConfigRepo{cfg: cfg}
	console := &fakeConsole{}

	app.SetRepositories(configRepo, export.NewExportRepository())
	app.SetBuilders(
		func(*types.Config) types.ConsoleInterface { return console },
		func(ctx context.Context, cfg *types.Config, logger types.Logger) (*usecase.ReportUseCase, error) {
			periods, err := service.NewPeriodCalculator(cfg.Timezone, entity.Granularity(cfg.Period))
			if err != nil {
				return nil, err
			}
			return usecase.NewReportUseCase(cost, nil, notifier, nil, periods,
				service.NewFormatter(cfg.TopN), logger, usecase.ReportOptions{}), nil
		},
	)
	app.rootCmd.SetOut(&bytes.Buffer{})
	return app, configRepo, console
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name     string
		costErr  error
		outcome  entity.DeliveryOutcome
		wantErr  bool
		wantSent int
	}{
		{"delivered", nil, entity.Delivered(), false, 1},
		{"delivery failed", nil, entity.Failed("permanent", errors.New("403")), true, 1},
		{"fetch failed", types.NewPermanentError("cost", errors.New("access denied")), entity.Delivered(), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{outcome: tt.outcome}
			app, configRepo, _ := newTestApp(t, testConfig(), &fakeCostRepo{err: tt.costErr}, notifier)
			app.rootCmd.SetArgs([]string{"run", "--timezone", "Asia/Tokyo"})

			err := app.Execute()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(notifier.sent) != tt.wantSent {
				t.Errorf("sent %d messages, want %d", len(notifier.sent), tt.wantSent)
			}
			if configRepo.args.Timezone != "Asia/Tokyo" || configRepo.args.DryRun {
				t.Errorf("unexpected args %+v", configRepo.args)
			}
		})
	}
}

func TestRunCommandConfigError(t *testing.T) {
	notifier := &fakeNotifier{outcome: entity.Delivered()}
	app, configRepo, _ := newTestApp(t, nil, &fakeCostRepo{}, notifier)
	configRepo.err = types.NewConfigurationError("config", types.ErrMissingTimezone)
	app.rootCmd.SetArgs([]string{"run"})

	if err := app.Execute(); !errors.Is(err, types.ErrMissingTimezone) {
		t.Fatalf("Execute() error = %v, want ErrMissingTimezone", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("sent %d messages, want none", len(notifier.sent))
	}
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	notifier := &fakeNotifier{outcome: entity.Delivered()}
	app, configRepo, console := newTestApp(t, testConfig(), &fakeCostRepo{}, notifier)
	app.rootCmd.SetArgs([]string{"preview", "-n", "daily", "-y", "csv,json,message", "-d", dir})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !configRepo.args.DryRun {
		t.Error("preview must load the configuration in dry-run mode")
	}
	if len(notifier.sent) != 0 {
		t.Errorf("preview sent %d messages", len(notifier.sent))
	}

	out := console.out.String()
	for _, want := range []string{"Amazon EC2 | 7.50 USD | 75.0%", "Amazon S3 | 2.50 USD | 25.0%", "10.00 USD"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	for _, pattern := range []string{"daily*.csv", "daily*.json", "daily_message*.json"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) == 0 {
			t.Errorf("no file matching %s", pattern)
		}
	}
}

func TestPreviewCommandUnsupportedExport(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(), &fakeCostRepo{}, &fakeNotifier{})
	app.rootCmd.SetArgs([]string{"preview", "-n", "daily", "-y", "xlsx", "-d", t.TempDir()})

	if err := app.Execute(); err == nil || !strings.Contains(err.Error(), "xlsx") {
		t.Fatalf("Execute() error = %v, want unsupported report type", err)
	}
}

func TestScheduleCommandRequiresSchedule(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(), &fakeCostRepo{}, &fakeNotifier{})
	app.rootCmd.SetArgs([]string{"schedule"})

	err := app.Execute()
	if !errors.Is(err, errMissingSchedule) || !types.IsKind(err, types.KindConfiguration) {
		t.Fatalf("Execute() error = %v, want missing schedule", err)
	}
}

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		schedule string
		wantErr  error
	}{
		{"valid", "Asia/Tokyo", "0 9 * * *", nil},
		{"bad timezone", "Mars/Olympus", "0 9 * * *", types.ErrInvalidTimezone},
		{"bad cron expression", "Asia/Tokyo", "every day", types.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Timezone = tt.timezone
			cfg.Schedule = tt.schedule

			c, err := newScheduler(context.Background(), cfg, nil, types.NopLogger{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("newScheduler() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("newScheduler() error = %v", err)
			}
			if got := len(c.Entries()); got != 1 {
				t.Errorf("entries = %d, want 1", got)
			}
			if loc := c.Location().String(); loc != tt.timezone {
				t.Errorf("location = %s, want %s", loc, tt.timezone)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	app, _, _ := newTestApp(t, testConfig(), &fakeCostRepo{}, &fakeNotifier{})
	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})

	if err := app.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "AWS Cost Notifier version: ") {
		t.Errorf("unexpected output %q", out.String())
	}
}
