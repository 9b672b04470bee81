// Package retry runs an operation with bounded exponential backoff and jitter.
// Only errors classified as transient are retried.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tatamiya/aws-cost-notification/internal/shared/types"
)

// Policy defines the retry behavior of a call site.
type Policy struct {
	MaxRetries          int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultPolicy returns the policy used for network calls.
func DefaultPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:          maxRetries,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         8 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.3,
	}
}

// NotifyFunc is called before each retry. attempt is the 1-based number of
// the retry about to happen.
type NotifyFunc func(attempt int, err error, wait time.Duration)

// BackOff builds the interval generator for the policy.
func (p Policy) BackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.RandomizationFactor
	// the caller's context bounds the total time
	b.MaxElapsedTime = 0

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	bo := backoff.WithMaxRetries(b, uint64(maxRetries))
	bo.Reset()
	return bo
}

// Do runs op until it succeeds, fails with a non-transient error, exhausts
// the policy or ctx ends. It returns the number of retries performed.
//
// A retry whose wait would outlive ctx's deadline is not attempted; Do then
// returns a timeout error right away instead of sleeping into the deadline.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify NotifyFunc) (int, error) {
	b := p.BackOff()
	retries := 0

	for {
		err := op(ctx)
		if err == nil {
			return retries, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return retries, types.NewTimeoutError("retry", fmt.Errorf("%w: %v", ctxErr, err))
		}
		if !types.IsKind(err, types.KindTransient) {
			return retries, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return retries, err
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return retries, types.NewTimeoutError("retry",
				fmt.Errorf("%w: next retry in %s: %v", types.ErrBudgetExhausted, wait, err))
		}

		if notify != nil {
			notify(retries+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return retries, types.NewTimeoutError("retry", fmt.Errorf("%w: %v", ctx.Err(), err))
		case <-timer.C:
		}
		retries++
	}
}
