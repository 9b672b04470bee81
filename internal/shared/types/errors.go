package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure. The orchestrator decides what to do
// with a failure from its kind alone.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors that were never classified.
	KindUnknown ErrorKind = iota
	// KindConfiguration is fatal and detected before any API call.
	KindConfiguration
	// KindTransient covers throttling, network errors and 5xx responses.
	KindTransient
	// KindPermanent covers bad requests, auth failures and corrupt data.
	KindPermanent
	// KindTimeout means the execution budget ran out.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

var (
	ErrMissingTimezone   = errors.New("reporting timezone is required (REPORTING_TIMEZONE)")
	ErrInvalidTimezone   = errors.New("unrecognized reporting timezone")
	ErrMissingWebhookURL = errors.New("webhook URL is required (SLACK_WEBHOOK_URL)")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrDataIntegrity     = errors.New("data integrity violation")
	ErrMixedCurrency     = fmt.Errorf("%w: mixed currencies in cost records", ErrDataIntegrity)
	ErrTooManyPages      = errors.New("cost API pagination exceeded page limit")
	ErrBudgetExhausted   = errors.New("execution budget exhausted")
)

// PipelineError carries the classification of a failure together with the
// operation that produced it.
type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewConfigurationError wraps err as a pre-flight configuration failure.
func NewConfigurationError(op string, err error) error {
	return &PipelineError{Kind: KindConfiguration, Op: op, Err: err}
}

// NewTransientError wraps err as a retryable failure.
func NewTransientError(op string, err error) error {
	return &PipelineError{Kind: KindTransient, Op: op, Err: err}
}

// NewPermanentError wraps err as a non-retryable failure.
func NewPermanentError(op string, err error) error {
	return &PipelineError{Kind: KindPermanent, Op: op, Err: err}
}

// NewTimeoutError wraps err as a budget failure.
func NewTimeoutError(op string, err error) error {
	return &PipelineError{Kind: KindTimeout, Op: op, Err: err}
}

// KindOf returns the classification of err. Context deadline and
// cancellation errors count as timeouts even when unclassified.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
