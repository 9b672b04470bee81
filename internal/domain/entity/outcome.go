package entity

import "fmt"

// DeliveryStatus is the terminal state of one invocation.
type DeliveryStatus string

const (
	StatusDelivered           DeliveryStatus = "delivered"
	StatusDeliveredAfterRetry DeliveryStatus = "delivered_after_retry"
	StatusFailed              DeliveryStatus = "failed"
)

// ReasonTimeout is the failure reason used whenever the execution budget or a
// delivery deadline runs out.
const ReasonTimeout = "timeout"

// DeliveryOutcome is the result of an invocation.
type DeliveryOutcome struct {
	Status  DeliveryStatus `json:"status"`
	Retries int            `json:"retries"`
	Reason  string         `json:"reason,omitempty"`
	Err     error          `json:"-"`
}

// Delivered is a first-attempt success.
func Delivered() DeliveryOutcome {
	return DeliveryOutcome{Status: StatusDelivered}
}

// DeliveredAfterRetry is a success after n retries. n == 0 is plain Delivered.
func DeliveredAfterRetry(n int) DeliveryOutcome {
	if n <= 0 {
		return Delivered()
	}
	return DeliveryOutcome{Status: StatusDeliveredAfterRetry, Retries: n}
}

// Failed is a terminal failure.
func Failed(reason string, err error) DeliveryOutcome {
	return DeliveryOutcome{Status: StatusFailed, Reason: reason, Err: err}
}

// Succeeded reports whether the message reached the channel.
func (o DeliveryOutcome) Succeeded() bool {
	return o.Status == StatusDelivered || o.Status == StatusDeliveredAfterRetry
}

func (o DeliveryOutcome) String() string {
	switch o.Status {
	case StatusDeliveredAfterRetry:
		return fmt.Sprintf("DeliveredAfterRetry(%d)", o.Retries)
	case StatusFailed:
		return fmt.Sprintf("Failed(%s)", o.Reason)
	default:
		return "Delivered"
	}
}
