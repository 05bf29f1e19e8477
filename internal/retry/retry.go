package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy holds the backoff tunables. Attempt 0 waits InitialDelay before
// the first retry; each later retry waits min(previous*Multiplier, MaxDelay).
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPolicy mirrors the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}

// Executor wraps upstream calls with bounded exponential-backoff retry.
// Only errors the injected classifier marks retryable are retried;
// everything else propagates on first occurrence.
type Executor struct {
	policy    Policy
	logger    *zap.Logger
	retryable func(error) bool
}

func NewExecutor(policy Policy, logger *zap.Logger, retryable func(error) bool) *Executor {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Executor{
		policy:    policy,
		logger:    logger,
		retryable: retryable,
	}
}

// ExhaustedError wraps the last failure after all attempts were used.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to %s after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do executes fn with the executor's retry policy. Each call gets its own
// short tracking token, distinct from the request correlation id, so log
// lines across attempts can be tied together.
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	callID := "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	delay := e.policy.InitialDelay

	e.logger.Info("starting upstream operation",
		zap.String("operation", operation),
		zap.String("call_id", callID),
	)

	var lastErr error
	for attempt := 0; attempt <= e.policy.MaxRetries; attempt++ {
		start := time.Now()
		result, err := fn(ctx)
		elapsed := time.Since(start)

		if err == nil {
			e.logger.Info("completed upstream operation",
				zap.String("operation", operation),
				zap.String("call_id", callID),
				zap.Int("attempt", attempt+1),
				zap.Duration("elapsed", elapsed),
			)
			return result, nil
		}

		lastErr = err
		e.logger.Warn("upstream operation failed",
			zap.String("operation", operation),
			zap.String("call_id", callID),
			zap.Int("attempt", attempt+1),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)

		if attempt == e.policy.MaxRetries || !e.retryable(err) {
			break
		}

		e.logger.Info("retry scheduled",
			zap.String("operation", operation),
			zap.String("call_id", callID),
			zap.Int("next_attempt", attempt+2),
			zap.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			// caller went away, no point retrying
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		next := time.Duration(float64(delay) * e.policy.Multiplier)
		if next > e.policy.MaxDelay {
			next = e.policy.MaxDelay
		}
		delay = next
	}

	if !e.retryable(lastErr) {
		return zero, lastErr
	}

	return zero, &ExhaustedError{
		Operation: operation,
		Attempts:  e.policy.MaxRetries + 1,
		Err:       lastErr,
	}
}
