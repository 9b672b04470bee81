package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/google/go-cmp/cmp"

	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

type mapEnvGetter struct {
	env map[string]string
}

func (e *mapEnvGetter) Getenv(key string) string {
	return e.env[key]
}

const testWebhook = "https://hooks.slack.com/services/T000/B000/XXXX"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromEnv(t *testing.T) {
	repo := NewConfigRepositoryWithEnv(&mapEnvGetter{env: map[string]string{
		EnvTimezone:                           "Asia/Tokyo",
		EnvWebhookURL:                         testWebhook,
		"COST_NOTIFIER_TOP_N":                 "5",
		"COST_NOTIFIER_PERIOD":                "month_to_date",
		"COST_NOTIFIER_LOG_FORMAT":            "TEXT",
		"COST_NOTIFIER_SCHEDULE":              "CRON_TZ=Asia/Tokyo 0 9 * * *",
		"COST_NOTIFIER_PUSHGATEWAY_URL":       "http://pushgateway:9091",
		"COST_NOTIFIER_SAFETY_MARGIN_SECONDS": "7",
	}})

	got, err := repo.Load(&types.CLIArgs{EnvFile: writeFile(t, "empty.env", "")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := types.DefaultConfig()
	want.Timezone = "Asia/Tokyo"
	want.WebhookURL = testWebhook
	want.TopN = 5
	want.Period = types.PeriodMonthToDate
	want.LogFormat = "text"
	want.Schedule = "CRON_TZ=Asia/Tokyo 0 9 * * *"
	want.PushgatewayURL = "http://pushgateway:9091"
	want.SafetyMarginSeconds = 7

	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	file := writeFile(t, "config.toml", `
timezone = "UTC"
webhook_url = "https://example.com/from-file"
top_n = 3
max_pages = 7
`)
	envFile := writeFile(t, "test.env", "REPORTING_TIMEZONE=Europe/Paris\nCOST_NOTIFIER_MAX_PAGES=9\n")

	repo := NewConfigRepositoryWithEnv(&mapEnvGetter{env: map[string]string{
		"COST_NOTIFIER_MAX_PAGES": "11",
	}})

	got, err := repo.Load(&types.CLIArgs{ConfigFile: file, EnvFile: envFile, Period: "month_to_date"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Timezone != "Europe/Paris" {
		t.Errorf("Timezone = %q, .env should override the file", got.Timezone)
	}
	if got.MaxPages != 11 {
		t.Errorf("MaxPages = %d, process env should override .env", got.MaxPages)
	}
	if got.TopN != 3 {
		t.Errorf("TopN = %d, want value from file", got.TopN)
	}
	if got.Period != types.PeriodMonthToDate {
		t.Errorf("Period = %q, flag should win", got.Period)
	}
	if got.CostAPIMaxRetries != types.DefaultConfig().CostAPIMaxRetries {
		t.Errorf("CostAPIMaxRetries = %d, want default", got.CostAPIMaxRetries)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    types.CLIArgs
		wantErr error
	}{
		{
			name:    "missing timezone",
			env:     map[string]string{EnvWebhookURL: testWebhook},
			wantErr: types.ErrMissingTimezone,
		},
		{
			name:    "invalid timezone",
			env:     map[string]string{EnvTimezone: "Asia/Atlantis", EnvWebhookURL: testWebhook},
			wantErr: types.ErrInvalidTimezone,
		},
		{
			name:    "missing webhook",
			env:     map[string]string{EnvTimezone: "UTC"},
			wantErr: types.ErrMissingWebhookURL,
		},
		{
			name:    "webhook is not a URL",
			env:     map[string]string{EnvTimezone: "UTC", EnvWebhookURL: "not a url"},
			wantErr: types.ErrInvalidConfig,
		},
		{
			name:    "bad integer",
			env:     map[string]string{EnvTimezone: "UTC", EnvWebhookURL: testWebhook, "COST_NOTIFIER_TOP_N": "ten"},
			wantErr: types.ErrInvalidConfig,
		},
		{
			name:    "bad period",
			env:     map[string]string{EnvTimezone: "UTC", EnvWebhookURL: testWebhook},
			args:    types.CLIArgs{Period: "weekly"},
			wantErr: types.ErrInvalidConfig,
		},
		{
			name:    "bad schedule",
			env:     map[string]string{EnvTimezone: "UTC", EnvWebhookURL: testWebhook, "COST_NOTIFIER_SCHEDULE": "every day"},
			wantErr: types.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			args.EnvFile = writeFile(t, "empty.env", "")

			_, err := NewConfigRepositoryWithEnv(&mapEnvGetter{env: tt.env}).Load(&args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if !types.IsKind(err, types.KindConfiguration) {
				t.Errorf("kind = %v, want configuration", types.KindOf(err))
			}
		})
	}
}

func TestLoad_DryRunWithoutWebhook(t *testing.T) {
	repo := NewConfigRepositoryWithEnv(&mapEnvGetter{env: map[string]string{EnvTimezone: "UTC"}})

	got, err := repo.Load(&types.CLIArgs{DryRun: true, EnvFile: writeFile(t, "empty.env", "")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.WebhookURL != "" {
		t.Errorf("WebhookURL = %q", got.WebhookURL)
	}
}

func TestLoad_ErrorsDoNotLeakWebhook(t *testing.T) {
	secret := "https://hooks.slack.com/services/secret-token"
	repo := NewConfigRepositoryWithEnv(&mapEnvGetter{env: map[string]string{
		EnvTimezone:           "UTC",
		EnvWebhookURL:         secret,
		"COST_NOTIFIER_TOP_N": "0",
	}})

	_, err := repo.Load(&types.CLIArgs{EnvFile: writeFile(t, "empty.env", "")})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Errorf("error leaks the webhook: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
	}{
		{"toml", "c.toml", "timezone = \"Asia/Tokyo\"\ntop_n = 4\n", false},
		{"yaml", "c.yaml", "timezone: Asia/Tokyo\ntop_n: 4\n", false},
		{"yml", "c.yml", "timezone: Asia/Tokyo\ntop_n: 4\n", false},
		{"json", "c.json", `{"timezone": "Asia/Tokyo", "top_n": 4}`, false},
		{"unsupported", "c.ini", "timezone=Asia/Tokyo", true},
		{"broken json", "c.json", `{"timezone": `, true},
	}

	repo := NewConfigRepositoryWithEnv(&mapEnvGetter{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.LoadConfigFile(writeFile(t, tt.file, tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadConfigFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (got.Timezone != "Asia/Tokyo" || got.TopN != 4) {
				t.Errorf("LoadConfigFile() = %+v", got)
			}
		})
	}

	if _, err := repo.LoadConfigFile(t.TempDir()); err == nil {
		t.Error("expected an error for a directory")
	}
}

func TestRedacted(t *testing.T) {
	c := types.DefaultConfig()
	c.WebhookURL = testWebhook

	if got := c.Redacted().WebhookURL; got == testWebhook {
		t.Errorf("Redacted() kept the webhook URL")
	}
	if c.WebhookURL != testWebhook {
		t.Errorf("Redacted() modified the receiver")
	}
}
