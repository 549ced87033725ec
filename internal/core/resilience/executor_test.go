package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return context.DeadlineExceeded
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, nil)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, attempts)
}

func TestDefaultClassifierGoogleAPIErrors(t *testing.T) {
	wrap := func(code int) error { return fmt.Errorf("gemini generate: %w", &googleapi.Error{Code: code}) }

	assert.Equal(t, ErrorClassification{Retryable: true, RecordFailure: true}, DefaultClassifier(wrap(429)))
	assert.Equal(t, ErrorClassification{Retryable: true, RecordFailure: true}, DefaultClassifier(wrap(503)))
	assert.Equal(t, ErrorClassification{}, DefaultClassifier(wrap(400)))
	assert.Equal(t, ErrorClassification{RecordFailure: true}, DefaultClassifier(errors.New("unexpected")))
	assert.Equal(t, ErrorClassification{}, DefaultClassifier(context.Canceled))
}

func TestExecuteRetriesThrottledCalls(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return &googleapi.Error{Code: 429}
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, nil)

	errBoom := errors.New("boom")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "gemini", func(context.Context) error { return errBoom }, nil)
		assert.ErrorIs(t, err, errBoom)
	}

	err := exec.Execute(context.Background(), "gemini", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsCircuitOpen(err))

	err = exec.Execute(context.Background(), "other-op", func(context.Context) error { return nil }, nil)
	assert.NoError(t, err)
}
