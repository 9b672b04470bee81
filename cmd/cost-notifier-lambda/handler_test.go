package main

import (
	"context"
	"errors"
	"testing"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

type fakeRunner struct {
	outcome entity.DeliveryOutcome
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context) entity.DeliveryOutcome {
	f.calls++
	return f.outcome
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name       string
		outcome    entity.DeliveryOutcome
		wantErr    bool
		wantStatus entity.DeliveryStatus
	}{
		{"delivered", entity.Delivered(), false, entity.StatusDelivered},
		{"delivered after retry", entity.DeliveredAfterRetry(2), false, entity.StatusDeliveredAfterRetry},
		{"failed", entity.Failed("timeout", errors.New("deadline")), true, entity.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{outcome: tt.outcome}
			h := &handler{runner: r}

			got, err := h.Handle(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if r.calls != 1 {
				t.Errorf("runner called %d times, want 1", r.calls)
			}
		})
	}
}

func TestHandleInitError(t *testing.T) {
	initErr := types.NewConfigurationError("config", types.ErrMissingTimezone)
	h := &handler{initErr: initErr}

	got, err := h.Handle(context.Background())
	if !errors.Is(err, types.ErrMissingTimezone) {
		t.Fatalf("error = %v, want ErrMissingTimezone", err)
	}
	if got.Status != entity.StatusFailed || got.Reason != "configuration" {
		t.Errorf("outcome = %s, want Failed(configuration)", got)
	}
}
