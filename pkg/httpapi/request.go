package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-identity/sso-broker/pkg/core"
)

// TimeoutBuffer is subtracted from the remaining request budget so the
// timeout failure is produced by the broker, as a structured response,
// before any enclosing infrastructure timeout cuts the connection.
const TimeoutBuffer = 250 * time.Millisecond

// DefaultBudget applies when the inbound context carries no deadline.
const DefaultBudget = 10 * time.Second

// runWithBudget races fn against the remaining budget of ctx. The loser is
// abandoned, not cancelled: underlying store/IdP/encryption calls simply
// stop being awaited.
func runWithBudget[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	budget := DefaultBudget
	if deadline, ok := ctx.Deadline(); ok {
		budget = time.Until(deadline) - TimeoutBuffer
		if budget <= 0 {
			budget = TimeoutBuffer
		}
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(ctx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case result := <-done:
		return result.value, result.err
	case <-timer.C:
		var zero T
		return zero, fmt.Errorf("%w: no result within %s", core.ErrTimeout, budget)
	}
}
