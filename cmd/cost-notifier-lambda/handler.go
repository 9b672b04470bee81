package main

import (
	"context"
	"fmt"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

// runner executa uma entrega do relatório.
type runner interface {
	Run(ctx context.Context) entity.DeliveryOutcome
}

// handler is invoked once per scheduled event. The runner is built at cold
// start; an init error fails every invocation without touching any API.
type handler struct {
	runner  runner
	initErr error
}

// Handle returns the outcome of the invocation. A failed outcome is also
// returned as an error so the invocation is marked as failed.
func (h *handler) Handle(ctx context.Context) (entity.DeliveryOutcome, error) {
	if h.initErr != nil {
		return entity.Failed("configuration", h.initErr), h.initErr
	}

	outcome := h.runner.Run(ctx)
	if !outcome.Succeeded() {
		return outcome, fmt.Errorf("report not delivered: %s", outcome)
	}
	return outcome, nil
}
