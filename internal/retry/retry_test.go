package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var errTransient = errors.New("connection refused")
var errPermanent = errors.New("invalid request")

func fastPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Millisecond,
	}
}

func transientOnly(err error) bool {
	return errors.Is(err, errTransient)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	exec := NewExecutor(fastPolicy(), zap.NewNop(), transientOnly)

	calls := 0
	result, err := Do(context.Background(), exec, "list_models", func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	exec := NewExecutor(fastPolicy(), zap.NewNop(), transientOnly)

	calls := 0
	result, err := Do(context.Background(), exec, "create_chat_completion", func(ctx context.Context) (int, error) {
		calls++
		if calls <= 2 {
			return 0, errTransient
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhaustion(t *testing.T) {
	exec := NewExecutor(fastPolicy(), zap.NewNop(), transientOnly)

	calls := 0
	_, err := Do(context.Background(), exec, "create_embedding", func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errTransient
	})

	// max_retries + 1 total attempts
	assert.Equal(t, 4, calls)

	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
}

func TestDo_NonRetryablePropagatesImmediately(t *testing.T) {
	exec := NewExecutor(fastPolicy(), zap.NewNop(), transientOnly)

	calls := 0
	_, err := Do(context.Background(), exec, "create_chat_completion", func(ctx context.Context) (string, error) {
		calls++
		return "", errPermanent
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, errPermanent)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted), "non-retryable errors are not wrapped")
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	policy := fastPolicy()
	policy.InitialDelay = time.Minute
	exec := NewExecutor(policy, zap.NewNop(), transientOnly)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	calls := 0
	_, err := Do(ctx, exec, "list_models", func(ctx context.Context) (string, error) {
		calls++
		return "", errTransient
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelayGrowthIsCapped(t *testing.T) {
	policy := Policy{
		MaxRetries:   4,
		InitialDelay: 2 * time.Millisecond,
		Multiplier:   10.0,
		MaxDelay:     4 * time.Millisecond,
	}
	exec := NewExecutor(policy, zap.NewNop(), transientOnly)

	start := time.Now()
	_, err := Do(context.Background(), exec, "list_models", func(ctx context.Context) (string, error) {
		return "", errTransient
	})
	elapsed := time.Since(start)

	assert.Error(t, err)
	// delays: 2ms + 4ms + 4ms + 4ms = 14ms, well under the uncapped 2+20+200+2000ms
	assert.Less(t, elapsed, 500*time.Millisecond)
}
