package retry

import (
	"context"
	"errors"
)

// Candidate produces a result or fails, letting the next candidate run
type Candidate[T any] func(ctx context.Context) (T, error)

// First tries each candidate in order and returns the first success.
// A failure moves on to the next candidate unless the context is done or the
// error is classified non-retryable by stop. When every candidate fails, the
// errors are joined so callers see the full chain.
func First[T any](ctx context.Context, stop func(error) bool, candidates ...Candidate[T]) (T, error) {
	var zero T
	var failures []error

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		result, err := candidate(ctx)
		if err == nil {
			return result, nil
		}
		failures = append(failures, err)

		if stop != nil && stop(err) {
			break
		}
	}

	return zero, errors.Join(failures...)
}
