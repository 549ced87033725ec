package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/models"
)

type stubLLM struct {
	reply  string
	err    error
	system string
	user   string
}

func (s *stubLLM) Generate(_ context.Context, system, user string) (string, error) {
	s.system, s.user = system, user
	return s.reply, s.err
}

const goodReply = `{
  "analysis": ["Payments to vendor 1142 repeat on the same day."],
  "recommendations": ["Reconcile vendor 1142"],
  "references": ["ACFE Manual", {"title": "SEC", "url": "https://www.sec.gov"}],
  "foresight": {
    "predictions": [{"title": "Audit finding", "description": "x", "riskScore": "150%", "impact": "high", "timeframe": "Q3 2025"}],
    "risks": [{"title": "Duplicate payments", "description": "y"}],
    "opportunities": []
  },
  "reasoningLog": [{"step": "Scan", "explanation": "Looked at vendors"}]
}`

func TestGenerateUsesModelOutput(t *testing.T) {
	stub := &stubLLM{reply: goodReply}
	g := NewGenerator(stub, nil, nil)

	r, err := g.Generate(context.Background(), "invoice 1142 paid twice", models.CategoryForensic, "UK")
	require.NoError(t, err)
	assert.Equal(t, []string{"Payments to vendor 1142 repeat on the same day."}, r.Analysis)
	require.Len(t, r.References, 2)
	assert.Equal(t, "ACFE Manual", r.References[0].Title)
	require.Len(t, r.Foresight.Predictions, 1)
	assert.Equal(t, 100, r.Foresight.Predictions[0].RiskScore)
	assert.Equal(t, "High", r.Foresight.Predictions[0].Impact)
	assert.NotNil(t, r.Foresight.Opportunities)

	assert.Contains(t, stub.system, "forensic accountant")
	assert.Contains(t, stub.system, "UK")
	assert.Contains(t, stub.user, "invoice 1142 paid twice")
}

func TestGenerateAcceptsFencedJSON(t *testing.T) {
	g := NewGenerator(&stubLLM{reply: "Here you go:\n```json\n" + goodReply + "\n```"}, nil, nil)

	r, err := g.Generate(context.Background(), "text", models.CategoryForensic, "US")
	require.NoError(t, err)
	assert.Equal(t, "Reconcile vendor 1142", r.Recommendations[0])
}

func TestGenerateFallsBackOnGarbage(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	g := NewGenerator(&stubLLM{reply: "I cannot help with that."}, nil, m)

	r, err := g.Generate(context.Background(), "income and deduction schedule", models.CategoryTax, "CA")
	require.NoError(t, err)
	assert.Equal(t, Fallback("income and deduction schedule", models.CategoryTax, "CA"), r)
	assert.Contains(t, strings.Join(r.Analysis, " "), "income, deduction")
	assert.Equal(t, "Canada Revenue Agency", r.References[0].Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackCounter("analysis", "malformed")))
}

func TestGenerateFallsBackOnMissingAnalysis(t *testing.T) {
	g := NewGenerator(&stubLLM{reply: `{"recommendations": ["x"]}`}, nil, nil)

	r, err := g.Generate(context.Background(), "agreement", models.CategoryLegal, "US")
	require.NoError(t, err)
	assert.Len(t, r.Analysis, 4)
	assert.Contains(t, r.Analysis[0], "agreement")
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	g := NewGenerator(&stubLLM{err: errors.New("quota exceeded")}, nil, m)

	r, err := g.Generate(context.Background(), "", models.CategoryLegal, "")
	require.NoError(t, err)
	assert.NotEmpty(t, r.Analysis)
	assert.NotEmpty(t, r.ReasoningLog)
	assert.Contains(t, r.Analysis[0], "no extractable text")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackCounter("analysis", "ai_error")))
}

func TestGenerateCountsOpenCircuitSeparately(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	g := NewGenerator(&stubLLM{err: fmt.Errorf("gemini.generate: %w", gobreaker.ErrOpenState)}, nil, m)

	r, err := g.Generate(context.Background(), "contract", models.CategoryLegal, "US")
	require.NoError(t, err)
	assert.NotEmpty(t, r.Analysis)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbackCounter("analysis", "circuit_open")))
	assert.Zero(t, testutil.ToFloat64(m.FallbackCounter("analysis", "ai_error")))
}

func TestGenerateWithoutProviderIsDeterministic(t *testing.T) {
	g := NewGenerator(nil, nil, nil)

	a, err := g.Generate(context.Background(), "vendor payment approval", models.CategoryForensic, "AU")
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), "vendor payment approval", models.CategoryForensic, "AU")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	for _, p := range a.Foresight.Predictions {
		assert.GreaterOrEqual(t, p.RiskScore, 1)
		assert.LessOrEqual(t, p.RiskScore, 100)
		assert.Contains(t, models.Impacts, p.Impact)
	}
}

func TestGenerateUnsupportedCategory(t *testing.T) {
	stub := &stubLLM{reply: goodReply}
	g := NewGenerator(stub, nil, nil)

	r, err := g.Generate(context.Background(), "text", models.Category("medical"), "US")
	require.NoError(t, err)
	assert.Contains(t, r.Analysis[0], "medical")
	assert.Empty(t, stub.system, "no model call for an unsupported category")
}

func TestGenerateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(nil, nil, nil).Generate(ctx, "text", models.CategoryTax, "US")
	assert.True(t, models.IsKind(err, models.ErrUnavailable))
}

func TestInsightUsesTopRisk(t *testing.T) {
	r := Fallback("", models.CategoryTax, "US")
	d := Insight(models.CategoryTax, "US", r)
	assert.Equal(t, "alert", d.Status)
	assert.True(t, strings.HasPrefix(d.Description, "Disallowed deductions"))

	empty := Insight(models.CategoryLegal, "UK", &models.AnalysisResult{})
	assert.Contains(t, empty.Description, "Contract exposure")
}

func TestUserPromptTruncatesLongText(t *testing.T) {
	s, _ := lookup(models.CategoryTax)
	long := strings.Repeat("é", maxPromptChars)
	p := userPrompt(s, "US", long)
	assert.Contains(t, p, "[truncated]")
	assert.Less(t, len(p), len(long))
}
