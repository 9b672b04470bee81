package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// Cost Explorer and Budgets are only served from us-east-1.
const billingRegion = "us-east-1"

// Clients agrupa os clientes AWS usados pelo notificador.
type Clients struct {
	CostExplorer *costexplorer.Client
	STS          *sts.Client
	Budgets      *budgets.Client
}

// LoadAWSConfig carrega a configuração padrão do SDK para o perfil informado.
// Retries are handled by the callers, so the SDK retryer is disabled.
func LoadAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(billingRegion),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, types.NewConfigurationError("aws config",
			fmt.Errorf("failed to load AWS config for profile %q: %w", profile, err))
	}
	return cfg, nil
}

// NewClients cria os clientes a partir de uma configuração já carregada.
func NewClients(cfg aws.Config) *Clients {
	billingCfg := cfg.Copy()
	billingCfg.Region = billingRegion

	return &Clients{
		CostExplorer: costexplorer.NewFromConfig(billingCfg),
		STS:          sts.NewFromConfig(billingCfg),
		Budgets:      budgets.NewFromConfig(billingCfg),
	}
}
