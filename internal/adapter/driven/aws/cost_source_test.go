package aws

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/shared/retry"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

type ceResponse struct {
	out *costexplorer.GetCostAndUsageOutput
	err error
}

// fakeCostExplorer replays responses in order and records the inputs.
type fakeCostExplorer struct {
	responses []ceResponse
	inputs    []*costexplorer.GetCostAndUsageInput
	block     bool
}

func (f *fakeCostExplorer) GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if len(f.inputs) > len(f.responses) {
		return nil, errors.New("unexpected call")
	}
	r := f.responses[len(f.inputs)-1]
	return r.out, r.err
}

var period = entity.ReportingPeriod{
	Start:    civil.Date{Year: 2021, Month: 7, Day: 31},
	End:      civil.Date{Year: 2021, Month: 7, Day: 31},
	Timezone: "Asia/Tokyo",
}

func group(service, amount, unit string) ceTypes.Group {
	return ceTypes.Group{
		Keys: []string{service},
		Metrics: map[string]ceTypes.MetricValue{
			metricAmortizedCost: {Amount: aws.String(amount), Unit: aws.String(unit)},
		},
	}
}

func output(date, next string, groups ...ceTypes.Group) *costexplorer.GetCostAndUsageOutput {
	out := &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []ceTypes.ResultByTime{{
			TimePeriod: &ceTypes.DateInterval{Start: aws.String(date), End: aws.String("2021-08-01")},
			Groups:     groups,
		}},
	}
	if next != "" {
		out.NextPageToken = aws.String(next)
	}
	return out
}

func newTestSource(client CostExplorerAPI, maxPages int) *CostSource {
	return NewCostSource(client, CostSourceOptions{
		CallTimeout: time.Second,
		MaxPages:    maxPages,
		Retry:       retry.Policy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	}).(*CostSource)
}

func TestCostSource_Fetch(t *testing.T) {
	fake := &fakeCostExplorer{responses: []ceResponse{
		{out: output("2021-07-31", "token-1",
			group("Amazon Elastic Compute Cloud - Compute", "10.00", "USD"),
			group("AWS Support", "0", ""))},
		{out: output("2021-07-31", "",
			group("Amazon Simple Storage Service", "3.25", "USD"))},
	}}

	records, err := newTestSource(fake, 5).Fetch(context.Background(), period)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(records), records)
	}
	if records[0].Dimension != "Amazon Elastic Compute Cloud - Compute" || records[0].Amount.String() != "10" {
		t.Errorf("records[0] = %+v", records[0])
	}
	if records[1].Currency != "USD" || records[1].Date != period.Start {
		t.Errorf("records[1] = %+v", records[1])
	}

	if len(fake.inputs) != 2 {
		t.Fatalf("got %d calls, want 2", len(fake.inputs))
	}
	first := fake.inputs[0]
	if aws.ToString(first.TimePeriod.Start) != "2021-07-31" || aws.ToString(first.TimePeriod.End) != "2021-08-01" {
		t.Errorf("TimePeriod = %s..%s", aws.ToString(first.TimePeriod.Start), aws.ToString(first.TimePeriod.End))
	}
	if first.Granularity != ceTypes.GranularityDaily || first.Metrics[0] != metricAmortizedCost {
		t.Errorf("unexpected query: %+v", first)
	}
	if aws.ToString(first.GroupBy[0].Key) != dimensionService {
		t.Errorf("GroupBy = %+v", first.GroupBy)
	}
	if first.NextPageToken != nil || aws.ToString(fake.inputs[1].NextPageToken) != "token-1" {
		t.Errorf("pagination tokens not forwarded")
	}
}

func TestCostSource_RetriesThrottling(t *testing.T) {
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded"}
	fake := &fakeCostExplorer{responses: []ceResponse{
		{err: throttled},
		{err: throttled},
		{out: output("2021-07-31", "", group("Tax", "1.00", "USD"))},
	}}

	records, err := newTestSource(fake, 5).Fetch(context.Background(), period)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 || len(fake.inputs) != 3 {
		t.Errorf("records = %d, calls = %d", len(records), len(fake.inputs))
	}
}

func TestCostSource_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responses []ceResponse
		maxPages  int
		wantKind  types.ErrorKind
		wantIs    error
		wantCalls int
	}{
		{
			name:      "access denied is not retried",
			responses: []ceResponse{{err: &smithy.GenericAPIError{Code: "AccessDeniedException"}}},
			maxPages:  5,
			wantKind:  types.KindPermanent,
			wantCalls: 1,
		},
		{
			name: "throttling until retries run out",
			responses: []ceResponse{
				{err: &smithy.GenericAPIError{Code: "LimitExceededException"}},
				{err: &smithy.GenericAPIError{Code: "LimitExceededException"}},
				{err: &smithy.GenericAPIError{Code: "LimitExceededException"}},
				{err: &smithy.GenericAPIError{Code: "LimitExceededException"}},
			},
			maxPages:  5,
			wantKind:  types.KindTransient,
			wantCalls: 4,
		},
		{
			name: "page limit",
			responses: []ceResponse{
				{out: output("2021-07-31", "a", group("Tax", "1", "USD"))},
				{out: output("2021-07-31", "b", group("Tax", "1", "USD"))},
			},
			maxPages:  2,
			wantKind:  types.KindPermanent,
			wantIs:    types.ErrTooManyPages,
			wantCalls: 2,
		},
		{
			name: "repeated token",
			responses: []ceResponse{
				{out: output("2021-07-31", "a", group("Tax", "1", "USD"))},
				{out: output("2021-07-31", "a", group("Tax", "1", "USD"))},
			},
			maxPages:  5,
			wantKind:  types.KindPermanent,
			wantIs:    types.ErrDataIntegrity,
			wantCalls: 2,
		},
		{
			name:      "unparsable amount",
			responses: []ceResponse{{out: output("2021-07-31", "", group("Tax", "one dollar", "USD"))}},
			maxPages:  5,
			wantKind:  types.KindPermanent,
			wantIs:    types.ErrDataIntegrity,
			wantCalls: 1,
		},
		{
			name:      "amount without unit",
			responses: []ceResponse{{out: output("2021-07-31", "", group("Tax", "1.5", ""))}},
			maxPages:  5,
			wantKind:  types.KindPermanent,
			wantIs:    types.ErrDataIntegrity,
			wantCalls: 1,
		},
		{
			name:      "date outside the period",
			responses: []ceResponse{{out: output("2021-07-30", "", group("Tax", "1", "USD"))}},
			maxPages:  5,
			wantKind:  types.KindPermanent,
			wantIs:    types.ErrDataIntegrity,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCostExplorer{responses: tt.responses}

			_, err := newTestSource(fake, tt.maxPages).Fetch(context.Background(), period)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := types.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v (err=%v)", got, tt.wantKind, err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if len(fake.inputs) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(fake.inputs), tt.wantCalls)
			}
		})
	}
}

func TestCostSource_DeadlineIsTimeout(t *testing.T) {
	fake := &fakeCostExplorer{block: true}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestSource(fake, 5).Fetch(ctx, period)
	if !types.IsKind(err, types.KindTimeout) {
		t.Fatalf("kind = %v, want timeout (err=%v)", types.KindOf(err), err)
	}
}

func TestCostSource_PagesStopsEarly(t *testing.T) {
	fake := &fakeCostExplorer{responses: []ceResponse{
		{out: output("2021-07-31", "a", group("Tax", "1", "USD"))},
		{out: output("2021-07-31", "", group("Tax", "1", "USD"))},
	}}

	for range newTestSource(fake, 5).Pages(context.Background(), period) {
		break
	}
	if len(fake.inputs) != 1 {
		t.Errorf("calls = %d, want 1", len(fake.inputs))
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException"}, types.KindTransient},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, types.KindPermanent},
		{"invalid token", &smithy.GenericAPIError{Code: "InvalidNextTokenException"}, types.KindPermanent},
		{"server fault", &smithy.GenericAPIError{Code: "Weird", Fault: smithy.FaultServer}, types.KindTransient},
		{"per call timeout", context.DeadlineExceeded, types.KindTransient},
		{"unknown", errors.New("???"), types.KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := types.KindOf(classifyError("op", tt.err)); got != tt.want {
				t.Errorf("classifyError() kind = %v, want %v", got, tt.want)
			}
		})
	}
}
