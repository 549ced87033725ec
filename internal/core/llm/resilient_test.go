package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/core/resilience"
)

type scriptedLLM struct {
	replies []string
	errs    []error
	calls   int
	block   bool
}

func (s *scriptedLLM) Generate(ctx context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func TestResilientLLMReturnsText(t *testing.T) {
	inner := &scriptedLLM{replies: []string{"hello"}}
	r := NewResilientLLM(inner, resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}, nil), "test", time.Second)

	out, err := r.Generate(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestResilientLLMEmptyBodyIsAnError(t *testing.T) {
	inner := &scriptedLLM{replies: []string{"   "}}
	r := NewResilientLLM(inner, resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}, nil), "test", time.Second)

	_, err := r.Generate(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestResilientLLMTimeoutSurfacesAsError(t *testing.T) {
	inner := &scriptedLLM{block: true}
	r := NewResilientLLM(inner, resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}, nil), "test", 10*time.Millisecond)

	_, err := r.Generate(context.Background(), "", "")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
