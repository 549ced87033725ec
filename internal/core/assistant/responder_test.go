package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/models"
)

type stubLLM struct {
	reply string
	err   error
	user  string
}

func (s *stubLLM) Generate(_ context.Context, _, user string) (string, error) {
	s.user = user
	return s.reply, s.err
}

func TestGenerateParsesJSONReply(t *testing.T) {
	stub := &stubLLM{reply: "```json\n{\"content\": \"Claim the home office.\", \"reasoningLog\": [{\"step\": \"Scan\", \"explanation\": \"found rent\"}]}\n```"}
	r := NewResponder(stub, nil, nil)

	reply, err := r.Generate(context.Background(), Turn{
		History: []models.Message{{Sender: models.SenderUser, Content: "hello"}, {Sender: models.SenderAssistant, Content: "hi"}},
		Message: "What can I deduct?",
		Context: []string{"rent 1200/month"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Claim the home office.", reply.Content)
	assert.Equal(t, "Scan", reply.ReasoningLog[0].Step)

	assert.Contains(t, stub.user, "rent 1200/month")
	assert.Contains(t, stub.user, "assistant: hi")
	assert.True(t, strings.HasSuffix(stub.user, "Latest message: What can I deduct?"))
}

func TestGenerateAcceptsPlainProse(t *testing.T) {
	r := NewResponder(&stubLLM{reply: "You can deduct mileage."}, nil, nil)

	reply, err := r.Generate(context.Background(), Turn{Message: "mileage?"})
	require.NoError(t, err)
	assert.Equal(t, "You can deduct mileage.", reply.Content)
	assert.NotEmpty(t, reply.ReasoningLog)
}

func TestGenerateFallsBackOnError(t *testing.T) {
	r := NewResponder(&stubLLM{err: errors.New("boom")}, nil, nil)

	reply, err := r.Generate(context.Background(), Turn{Message: "What are my tax deductions?", Jurisdiction: "UK"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "UK tax")
	assert.NotEmpty(t, reply.ReasoningLog)
}

func TestGenerateFallsBackOnEmptyContent(t *testing.T) {
	r := NewResponder(&stubLLM{reply: `{"content": "  "}`}, nil, nil)

	reply, err := r.Generate(context.Background(), Turn{Message: "is this fraud?"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "forensic")
}

func TestFallbackRoutes(t *testing.T) {
	cases := map[string]string{
		"Review my contract":  "Contract questions",
		"audit the ledger":    "forensic review",
		"how do I file taxes": "tax questions",
		"good morning":        "I can help",

		"What is the first step in a lawsuit?":          "Contract questions",
		"Is this private agreement enforceable?":        "Contract questions",
		"Are accredited investors treated differently?": "I can help",
		"Can I deduct my home office?":                  "tax questions",
	}
	for msg, want := range cases {
		reply := Fallback(msg, "")
		assert.Contains(t, reply.Content, want, msg)
		assert.NotEmpty(t, reply.ReasoningLog, msg)
	}
}

func TestFallbackMatchesWholeWords(t *testing.T) {
	reply := Fallback("What is the first step in a lawsuit?", "US")
	require.NotEmpty(t, reply.ReasoningLog)
	assert.Equal(t, `Matched "lawsuit", routing to legal guidance.`, reply.ReasoningLog[0].Explanation)
}

func TestUserPromptKeepsRecentHistory(t *testing.T) {
	var history []models.Message
	for i := 0; i < maxHistory+5; i++ {
		history = append(history, models.Message{Sender: models.SenderUser, Content: strings.Repeat("x", i+1)})
	}
	p := userPrompt(Turn{History: history, Message: "latest"})
	assert.NotContains(t, p, "user: x\n")
	assert.Contains(t, p, "user: "+strings.Repeat("x", maxHistory+5)+"\n")
}
