package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

const (
	// DefaultTopN bounds the contributor list when no limit is configured.
	DefaultTopN = 10
	// MessageColor is the attachment color of every report.
	MessageColor = "#36a64f"

	defaultScale = 2
)

var (
	hundred         = decimal.NewFromInt(100)
	reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tatamiya/aws-cost-notification"))
)

// Formatter renders summaries into notification messages. It holds no clock
// and no mutable state: the same input always renders the same bytes.
type Formatter struct {
	topN int
}

// NewFormatter creates a formatter listing at most topN contributors.
func NewFormatter(topN int) *Formatter {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Formatter{topN: topN}
}

// Format renders a summary without account context.
func (f *Formatter) Format(summary entity.CostSummary) entity.NotificationMessage {
	return f.FormatReport(entity.Report{Summary: summary})
}

// FormatReport renders a summary plus optional account id and budgets.
func (f *Formatter) FormatReport(report entity.Report) entity.NotificationMessage {
	s := report.Summary
	reportID := ReportID(report.AccountID, s.Period)

	return entity.NotificationMessage{
		Header:   f.header(report),
		Body:     f.body(report),
		Footer:   "Report ID " + reportID,
		Color:    MessageColor,
		ReportID: reportID,
	}
}

// ReportID identifies the report of an account and period. Rendering the same
// period twice yields the same id, which makes duplicate deliveries visible.
func ReportID(accountID string, period entity.ReportingPeriod) string {
	key := strings.Join([]string{accountID, period.APIStart(), period.End.String(), period.Timezone}, "|")
	return uuid.NewSHA1(reportNamespace, []byte(key)).String()
}

func (f *Formatter) header(report entity.Report) string {
	s := report.Summary
	header := fmt.Sprintf("AWS cost for %s: %s", s.Period, FormatAmount(s.Total, s.Currency))
	if report.AccountID != "" {
		header = fmt.Sprintf("[%s] %s", report.AccountID, header)
	}
	return header
}

func (f *Formatter) body(report entity.Report) string {
	s := report.Summary
	lines := f.contributorLines(s)

	if len(report.Budgets) > 0 {
		lines = append(lines, "", "Budgets:")
		for _, b := range report.Budgets {
			lines = append(lines, budgetLine(b))
		}
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) contributorLines(s entity.CostSummary) []string {
	if len(s.ByDimension) == 0 {
		return []string{"No billed usage in this period."}
	}

	scale := CurrencyScale(s.Currency)
	ranked := s.TopContributors()

	var lines []string
	listed := 0
	rest := decimal.Zero
	for _, dc := range ranked {
		if listed >= f.topN || dc.Amount.Round(scale).IsZero() {
			rest = rest.Add(dc.Amount)
			continue
		}
		lines = append(lines, contributorLine(dc, s.Total, s.Currency))
		listed++
	}

	if hidden := len(ranked) - listed; hidden > 0 {
		noun := "services"
		if hidden == 1 {
			noun = "service"
		}
		lines = append(lines, fmt.Sprintf("…and %d more %s (%s)", hidden, noun, FormatAmount(rest, s.Currency)))
	}

	return lines
}

func contributorLine(dc entity.DimensionCost, total decimal.Decimal, code string) string {
	line := fmt.Sprintf("• %s: %s", dc.Dimension, FormatAmount(dc.Amount, code))
	if total.IsPositive() {
		share := dc.Amount.Div(total).Mul(hundred)
		line += fmt.Sprintf(" (%s%%)", share.StringFixed(1))
	}
	return line
}

func budgetLine(b entity.BudgetInfo) string {
	line := fmt.Sprintf("• %s: %s / %s", b.Name,
		b.Actual.StringFixed(CurrencyScale(b.Currency)), FormatAmount(b.Limit, b.Currency))
	if b.Limit.IsPositive() {
		line += fmt.Sprintf(" (%s%%)", b.Actual.Div(b.Limit).Mul(hundred).StringFixed(1))
	}
	if b.Forecast.IsPositive() {
		line += fmt.Sprintf(", forecast %s", FormatAmount(b.Forecast, b.Currency))
	}
	return line
}

// FormatAmount renders amount with the minor-unit digits of its currency.
func FormatAmount(amount decimal.Decimal, code string) string {
	if code == "" {
		code = entity.DefaultCurrency
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(CurrencyScale(code)), code)
}

// CurrencyScale returns the ISO 4217 minor-unit digits of code, or 2 for
// codes the currency table does not know.
func CurrencyScale(code string) int32 {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return defaultScale
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}
