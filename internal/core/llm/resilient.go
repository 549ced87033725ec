package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/core/resilience"
)

// ErrEmptyResponse is returned when the model produced no text at all.
var ErrEmptyResponse = errors.New("llm: empty response")

// ResilientLLM routes every call through a resilience.Executor and bounds it with a timeout.
// A timeout, an open circuit and an empty body all surface as errors to the caller.
type ResilientLLM struct {
	inner     core.LLMProvider
	exec      *resilience.Executor
	operation string
	timeout   time.Duration
}

func NewResilientLLM(inner core.LLMProvider, exec *resilience.Executor, operation string, timeout time.Duration) *ResilientLLM {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ResilientLLM{inner: inner, exec: exec, operation: operation, timeout: timeout}
}

func (r *ResilientLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var out string
	err := r.exec.Execute(ctx, r.operation, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		text, err := r.inner.Generate(callCtx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return ErrEmptyResponse
		}
		out = text
		return nil
	}, nil)
	return out, err
}

var _ core.LLMProvider = (*ResilientLLM)(nil)
