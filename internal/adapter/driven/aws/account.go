package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	budgetTypes "github.com/aws/aws-sdk-go-v2/service/budgets/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/shopspring/decimal"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/domain/repository"
)

// STSAPI is the part of the STS client used by AccountRepositoryImpl.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AccountRepositoryImpl implementa o AccountRepository.
type AccountRepositoryImpl struct {
	sts     STSAPI
	budgets budgets.DescribeBudgetsAPIClient
}

// NewAccountRepository cria uma nova implementação do AccountRepository.
// budgetsClient may be nil when budgets are not wanted.
func NewAccountRepository(stsClient STSAPI, budgetsClient budgets.DescribeBudgetsAPIClient) repository.AccountRepository {
	return &AccountRepositoryImpl{sts: stsClient, budgets: budgetsClient}
}

func (r *AccountRepositoryImpl) GetAccountID(ctx context.Context) (string, error) {
	result, err := r.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", classifyError("sts", fmt.Errorf("error getting account ID: %w", err))
	}
	return aws.ToString(result.Account), nil
}

func (r *AccountRepositoryImpl) GetBudgets(ctx context.Context, accountID string) ([]entity.BudgetInfo, error) {
	if r.budgets == nil || accountID == "" {
		return nil, nil
	}

	paginator := budgets.NewDescribeBudgetsPaginator(r.budgets, &budgets.DescribeBudgetsInput{
		AccountId: aws.String(accountID),
	})

	budgetsData := []entity.BudgetInfo{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyError("budgets", err)
		}
		for _, budget := range page.Budgets {
			budgetsData = append(budgetsData, toBudgetInfo(budget))
		}
	}

	return budgetsData, nil
}

func toBudgetInfo(budget budgetTypes.Budget) entity.BudgetInfo {
	b := entity.BudgetInfo{Name: aws.ToString(budget.BudgetName), Currency: entity.DefaultCurrency}
	if budget.BudgetLimit != nil {
		b.Limit, _ = decimal.NewFromString(aws.ToString(budget.BudgetLimit.Amount))
		if unit := aws.ToString(budget.BudgetLimit.Unit); unit != "" {
			b.Currency = unit
		}
	}
	if spend := budget.CalculatedSpend; spend != nil {
		if spend.ActualSpend != nil {
			b.Actual, _ = decimal.NewFromString(aws.ToString(spend.ActualSpend.Amount))
		}
		if spend.ForecastedSpend != nil {
			b.Forecast, _ = decimal.NewFromString(aws.ToString(spend.ForecastedSpend.Amount))
		}
	}
	return b
}
