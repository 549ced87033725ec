package analysis

import (
	"context"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/core/resilience"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/models"
)

// Generator produces an AnalysisResult using the AI strategy when available and the
// deterministic templates otherwise.
type Generator struct {
	llm     core.LLMProvider
	log     *logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewGenerator accepts a nil provider, in which case every call uses the fallback.
func NewGenerator(provider core.LLMProvider, log *logger.Logger, m *metrics.PipelineMetrics) *Generator {
	return &Generator{llm: provider, log: logger.OrNop(log).With("component", "analysis"), metrics: m}
}

// Generate never returns an AI failure. The only error is a context that was already
// done on entry, which leaves neither strategy able to run.
func (g *Generator) Generate(ctx context.Context, text string, category models.Category, jurisdiction string) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.WrapError(models.ErrUnavailable, "generate analysis", err)
	}

	s, ok := lookup(category)
	if !ok {
		g.log.Warn("unsupported analysis category", "category", category)
		return unsupportedResult(category), nil
	}
	jurisdiction = normalizeJurisdiction(jurisdiction)

	if g.llm == nil {
		return g.fallback(s, text, jurisdiction, "disabled"), nil
	}

	raw, err := g.llm.Generate(ctx, systemPrompt(s, jurisdiction), userPrompt(s, jurisdiction, text))
	if err != nil {
		g.log.Warn("ai analysis failed, using fallback", "category", category, "error", err)
		return g.fallback(s, text, jurisdiction, failureReason(err)), nil
	}

	result, err := parseResult(raw)
	if err != nil {
		g.log.Warn("ai analysis malformed, using fallback", "category", category, "error", err, "raw_len", len(raw))
		return g.fallback(s, text, jurisdiction, "malformed"), nil
	}
	return result, nil
}

// failureReason separates a tripped breaker from an ordinary provider error.
func failureReason(err error) string {
	if resilience.IsCircuitOpen(err) {
		return "circuit_open"
	}
	return "ai_error"
}

func (g *Generator) fallback(s strategy, text, jurisdiction, reason string) *models.AnalysisResult {
	g.metrics.Fallback("analysis", reason)
	return s.fallback(profileOf(text, s.keywords), jurisdiction).Normalize()
}
