package handlers

import (
	"context"
	"time"

	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// Retrier re-runs an operation that lost an optimistic concurrency race. Only
// CONCURRENCY_CONFLICT is retried; the n-th retry waits n times the backoff.
type Retrier struct {
	attempts int
	backoff  time.Duration
}

// NewRetrier builds a retrier making at most attempts calls.
func NewRetrier(attempts int, backoff time.Duration) *Retrier {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrier{attempts: attempts, backoff: backoff}
}

// Do calls fn until it succeeds, fails with a non-conflict error, or the
// attempts are used up.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn()
		if err == nil || !apperrors.HasCode(err, apperrors.CodeConcurrencyConflict) || attempt == r.attempts {
			return err
		}
		if r.backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * r.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

// DoVersioned is Do for requests that may pin an expected version. A pinned
// stale version conflicts on every attempt, so it is tried once.
func (r *Retrier) DoVersioned(ctx context.Context, expectedVersion int64, fn func() error) error {
	if expectedVersion != 0 {
		return fn()
	}
	return r.Do(ctx, fn)
}
