package types

import (
	"time"
)

// Period granularities understood by the period calculator.
const (
	PeriodDaily       = "daily"
	PeriodMonthToDate = "month_to_date"
)

// Config represents the application configuration that can be loaded from a file
// and overridden by the environment.
type Config struct {
	Timezone   string `json:"timezone" yaml:"timezone" toml:"timezone" validate:"required,timezone"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url" toml:"webhook_url" validate:"omitempty,url"`
	Schedule   string `json:"schedule" yaml:"schedule" toml:"schedule" validate:"omitempty,cronspec"`
	Period     string `json:"period" yaml:"period" toml:"period" validate:"oneof=daily month_to_date"`
	AWSProfile string `json:"aws_profile" yaml:"aws_profile" toml:"aws_profile"`

	TopN     int `json:"top_n" yaml:"top_n" toml:"top_n" validate:"min=1,max=50"`
	MaxPages int `json:"max_pages" yaml:"max_pages" toml:"max_pages" validate:"min=1,max=1000"`

	CostAPITimeoutSeconds    int     `json:"cost_api_timeout_seconds" yaml:"cost_api_timeout_seconds" toml:"cost_api_timeout_seconds" validate:"min=1"`
	CostAPIMaxRetries        int     `json:"cost_api_max_retries" yaml:"cost_api_max_retries" toml:"cost_api_max_retries" validate:"min=0,max=10"`
	CostAPIRequestsPerSecond float64 `json:"cost_api_requests_per_second" yaml:"cost_api_requests_per_second" toml:"cost_api_requests_per_second" validate:"gt=0"`

	WebhookTimeoutSeconds   int `json:"webhook_timeout_seconds" yaml:"webhook_timeout_seconds" toml:"webhook_timeout_seconds" validate:"min=1"`
	WebhookMaxRetries       int `json:"webhook_max_retries" yaml:"webhook_max_retries" toml:"webhook_max_retries" validate:"min=0,max=10"`
	DeliveryDeadlineSeconds int `json:"delivery_deadline_seconds" yaml:"delivery_deadline_seconds" toml:"delivery_deadline_seconds" validate:"min=1"`

	ExecutionBudgetSeconds int `json:"execution_budget_seconds" yaml:"execution_budget_seconds" toml:"execution_budget_seconds" validate:"min=1"`
	SafetyMarginSeconds    int `json:"safety_margin_seconds" yaml:"safety_margin_seconds" toml:"safety_margin_seconds" validate:"min=0"`
	MinStageBudgetSeconds  int `json:"min_stage_budget_seconds" yaml:"min_stage_budget_seconds" toml:"min_stage_budget_seconds" validate:"min=0"`

	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" toml:"pushgateway_url" validate:"omitempty,url"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `json:"log_format" yaml:"log_format" toml:"log_format" validate:"oneof=json text"`
}

// DefaultConfig returns a Config with every optional field populated.
func DefaultConfig() Config {
	return Config{
		Period:                   PeriodDaily,
		TopN:                     10,
		MaxPages:                 20,
		CostAPITimeoutSeconds:    15,
		CostAPIMaxRetries:        3,
		CostAPIRequestsPerSecond: 5,
		WebhookTimeoutSeconds:    10,
		WebhookMaxRetries:        3,
		DeliveryDeadlineSeconds:  30,
		ExecutionBudgetSeconds:   120,
		SafetyMarginSeconds:      5,
		MinStageBudgetSeconds:    2,
		LogLevel:                 "info",
		LogFormat:                "json",
	}
}

func (c Config) CostAPITimeout() time.Duration {
	return time.Duration(c.CostAPITimeoutSeconds) * time.Second
}

func (c Config) WebhookTimeout() time.Duration {
	return time.Duration(c.WebhookTimeoutSeconds) * time.Second
}

func (c Config) DeliveryDeadline() time.Duration {
	return time.Duration(c.DeliveryDeadlineSeconds) * time.Second
}

func (c Config) ExecutionBudget() time.Duration {
	return time.Duration(c.ExecutionBudgetSeconds) * time.Second
}

func (c Config) SafetyMargin() time.Duration {
	return time.Duration(c.SafetyMarginSeconds) * time.Second
}

func (c Config) MinStageBudget() time.Duration {
	return time.Duration(c.MinStageBudgetSeconds) * time.Second
}

// Redacted returns a copy that is safe to log.
func (c Config) Redacted() Config {
	if c.WebhookURL != "" {
		c.WebhookURL = "[redacted]"
	}
	return c
}
