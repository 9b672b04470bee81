package repository

import (
	"context"

	"github.com/tatamiya/aws-cost-notification/internal/domain/entity"
)

// NotifierRepository delivers a rendered message to the chat channel.
type NotifierRepository interface {
	Deliver(ctx context.Context, message entity.NotificationMessage) entity.DeliveryOutcome
}
