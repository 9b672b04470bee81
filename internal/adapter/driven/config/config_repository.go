package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

const (
	// EnvTimezone and EnvWebhookURL keep the names the notifier has always used.
	EnvTimezone   = "REPORTING_TIMEZONE"
	EnvWebhookURL = "SLACK_WEBHOOK_URL"
	// EnvPrefix prefixes every other option, e.g. COST_NOTIFIER_TOP_N.
	EnvPrefix = "COST_NOTIFIER_"

	defaultEnvFile = ".env"
)

// EnvGetter abstracts environment variable access for DI
type EnvGetter interface {
	Getenv(key string) string
}

// osEnvGetter is the default implementation using os.Getenv
type osEnvGetter struct{}

func (o *osEnvGetter) Getenv(key string) string {
	return os.Getenv(key)
}

// ConfigRepositoryImpl implementa o ConfigRepository.
type ConfigRepositoryImpl struct {
	env      EnvGetter
	validate *validator.Validate
}

// NewConfigRepository cria uma nova implementação do ConfigRepository.
func NewConfigRepository() repository.ConfigRepository {
	return NewConfigRepositoryWithEnv(&osEnvGetter{})
}

// NewConfigRepositoryWithEnv usa o EnvGetter informado (para DI/testes).
func NewConfigRepositoryWithEnv(env EnvGetter) repository.ConfigRepository {
	return &ConfigRepositoryImpl{env: env, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// LoadConfigFile carrega um arquivo de configuração TOML, YAML ou JSON.
func (r *ConfigRepositoryImpl) LoadConfigFile(filePath string) (*types.Config, error) {
	var config types.Config
	if err := decodeConfigFile(filePath, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load monta a configuração final: defaults, arquivo, .env, variáveis de
// ambiente e por fim as flags da linha de comando. The result is validated.
func (r *ConfigRepositoryImpl) Load(args *types.CLIArgs) (*types.Config, error) {
	if args == nil {
		args = &types.CLIArgs{}
	}
	config := types.DefaultConfig()

	if args.ConfigFile != "" {
		if err := decodeConfigFile(args.ConfigFile, &config); err != nil {
			return nil, types.NewConfigurationError("config", err)
		}
	}

	dotenv, err := readEnvFile(args.EnvFile)
	if err != nil {
		return nil, types.NewConfigurationError("config", err)
	}
	lookup := func(key string) string {
		if v := r.env.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}
	if err := applyEnv(&config, lookup); err != nil {
		return nil, types.NewConfigurationError("config", err)
	}

	applyArgs(&config, args)

	if err := r.check(&config, args.DryRun); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeConfigFile(filePath string, config *types.Config) error {
	fileExtension := strings.ToLower(filepath.Ext(filePath))

	// Verifica se o arquivo existe
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error accessing config file: %w", err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	switch fileExtension {
	case ".toml":
		if err := toml.Unmarshal(fileData, config); err != nil {
			return fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, config); err != nil {
			return fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, config); err != nil {
			return fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", fileExtension)
	}

	return nil
}

// readEnvFile reads path without touching the process environment. An
// explicit path must exist; the default .env is optional.
func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return values, nil
}

func applyEnv(config *types.Config, lookup func(string) string) error {
	strs := map[string]*string{
		EnvTimezone:                   &config.Timezone,
		EnvWebhookURL:                 &config.WebhookURL,
		EnvPrefix + "SCHEDULE":        &config.Schedule,
		EnvPrefix + "PERIOD":          &config.Period,
		EnvPrefix + "AWS_PROFILE":     &config.AWSProfile,
		EnvPrefix + "PUSHGATEWAY_URL": &config.PushgatewayURL,
		EnvPrefix + "LOG_LEVEL":       &config.LogLevel,
		EnvPrefix + "LOG_FORMAT":      &config.LogFormat,
	}
	for key, field := range strs {
		if v := lookup(key); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		EnvPrefix + "TOP_N":                     &config.TopN,
		EnvPrefix + "MAX_PAGES":                 &config.MaxPages,
		EnvPrefix + "COST_API_TIMEOUT_SECONDS":  &config.CostAPITimeoutSeconds,
		EnvPrefix + "COST_API_MAX_RETRIES":      &config.CostAPIMaxRetries,
		EnvPrefix + "WEBHOOK_TIMEOUT_SECONDS":   &config.WebhookTimeoutSeconds,
		EnvPrefix + "WEBHOOK_MAX_RETRIES":       &config.WebhookMaxRetries,
		EnvPrefix + "DELIVERY_DEADLINE_SECONDS": &config.DeliveryDeadlineSeconds,
		EnvPrefix + "EXECUTION_BUDGET_SECONDS":  &config.ExecutionBudgetSeconds,
		EnvPrefix + "SAFETY_MARGIN_SECONDS":     &config.SafetyMarginSeconds,
		EnvPrefix + "MIN_STAGE_BUDGET_SECONDS":  &config.MinStageBudgetSeconds,
	}
	for key, field := range ints {
		v := lookup(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", types.ErrInvalidConfig, key)
		}
		*field = n
	}

	if v := lookup(EnvPrefix + "COST_API_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %sCOST_API_REQUESTS_PER_SECOND must be a number", types.ErrInvalidConfig, EnvPrefix)
		}
		config.CostAPIRequestsPerSecond = f
	}

	return nil
}

func applyArgs(config *types.Config, args *types.CLIArgs) {
	if args.Timezone != "" {
		config.Timezone = args.Timezone
	}
	if args.Period != "" {
		config.Period = args.Period
	}
	if args.LogLevel != "" {
		config.LogLevel = args.LogLevel
	}
	if args.LogFormat != "" {
		config.LogFormat = args.LogFormat
	}
	config.Timezone = strings.TrimSpace(config.Timezone)
	config.WebhookURL = strings.TrimSpace(config.WebhookURL)
	config.LogLevel = strings.ToLower(config.LogLevel)
	config.LogFormat = strings.ToLower(config.LogFormat)
}

func (r *ConfigRepositoryImpl) check(config *types.Config, dryRun bool) error {
	if config.Timezone == "" {
		return types.NewConfigurationError("config", types.ErrMissingTimezone)
	}
	if config.WebhookURL == "" && !dryRun {
		return types.NewConfigurationError("config", types.ErrMissingWebhookURL)
	}

	err := r.validate.Struct(config)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewConfigurationError("config", fmt.Errorf("%w: %v", types.ErrInvalidConfig, err))
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "timezone" {
			return types.NewConfigurationError("config",
				fmt.Errorf("%w %q", types.ErrInvalidTimezone, config.Timezone))
		}
		msgs = append(msgs, msgForTag(fe))
	}
	return types.NewConfigurationError("config",
		fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(msgs, "; ")))
}

// msgForTag returns a human-readable message for a validation tag. Field
// values are left out so secrets never reach the logs.
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "cronspec":
		return fmt.Sprintf("%s must be a cron expression", field)
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}
