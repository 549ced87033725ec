package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/core/llm"
	"github.com/markdave123-py/Auditra/internal/core/resilience"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/models"
)

// maxHistory bounds how many prior messages are replayed to the model.
const maxHistory = 20

// Turn is everything the responder sees for one user message.
type Turn struct {
	History      []models.Message // chronological, excluding Message
	Message      string
	Jurisdiction string
	Context      []string // excerpts from the user's own documents
}

type Reply struct {
	Content      string
	ReasoningLog []models.ReasoningStep
}

// Responder answers conversation turns, preferring the model and degrading to
// keyword-routed canned replies.
type Responder struct {
	llm     core.LLMProvider
	log     *logger.Logger
	metrics *metrics.PipelineMetrics
}

func NewResponder(provider core.LLMProvider, log *logger.Logger, m *metrics.PipelineMetrics) *Responder {
	return &Responder{llm: provider, log: logger.OrNop(log).With("component", "assistant"), metrics: m}
}

// Generate always yields a non-empty reply unless ctx was already done.
func (r *Responder) Generate(ctx context.Context, turn Turn) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, models.WrapError(models.ErrUnavailable, "generate reply", err)
	}
	jurisdiction := strings.TrimSpace(turn.Jurisdiction)
	if jurisdiction == "" {
		jurisdiction = models.DefaultJurisdiction
	}

	if r.llm == nil {
		r.metrics.Fallback("assistant", "disabled")
		return Fallback(turn.Message, jurisdiction), nil
	}

	raw, err := r.llm.Generate(ctx, systemPrompt(jurisdiction), userPrompt(turn))
	if err != nil {
		r.log.Warn("ai reply failed, using fallback", "error", err)
		reason := "ai_error"
		if resilience.IsCircuitOpen(err) {
			reason = "circuit_open"
		}
		r.metrics.Fallback("assistant", reason)
		return Fallback(turn.Message, jurisdiction), nil
	}

	reply, ok := parseReply(raw)
	if !ok {
		r.metrics.Fallback("assistant", "malformed")
		return Fallback(turn.Message, jurisdiction), nil
	}
	return reply, nil
}

func systemPrompt(jurisdiction string) string {
	return fmt.Sprintf(
		"You are a financial assistant specialising in forensic accounting, tax and legal matters under %s rules. "+
			"Answer the user's latest message using the conversation and any document excerpts provided. "+
			`Respond with a JSON object: {"content": "your answer", "reasoningLog": [{"step": "", "explanation": ""}]}.`,
		jurisdiction,
	)
}

func userPrompt(turn Turn) string {
	var b strings.Builder
	if len(turn.Context) > 0 {
		b.WriteString("Document excerpts:\n")
		for _, c := range turn.Context {
			b.WriteString(c)
			b.WriteString("\n---\n")
		}
		b.WriteString("\n")
	}

	history := turn.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Latest message: %s", turn.Message)
	return b.String()
}

type wireReply struct {
	Content      string                 `json:"content"`
	ReasoningLog []models.ReasoningStep `json:"reasoningLog"`
}

// parseReply accepts the requested JSON shape, and plain prose as a last resort.
func parseReply(raw string) (Reply, bool) {
	var w wireReply
	if err := llm.DecodeJSONObject(raw, &w); err == nil {
		content := strings.TrimSpace(w.Content)
		if content == "" {
			return Reply{}, false
		}
		return Reply{Content: content, ReasoningLog: ensureReasoning(w.ReasoningLog)}, true
	}

	text := strings.TrimSpace(raw)
	if text == "" || json.Valid([]byte(text)) {
		return Reply{}, false
	}
	return Reply{Content: text, ReasoningLog: ensureReasoning(nil)}, true
}

func ensureReasoning(steps []models.ReasoningStep) []models.ReasoningStep {
	out := make([]models.ReasoningStep, 0, len(steps))
	for _, s := range steps {
		if s.Step != "" || s.Explanation != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, models.ReasoningStep{
			Step:        "Model answer",
			Explanation: "The reply was produced directly from the conversation and document excerpts.",
		})
	}
	return out
}
