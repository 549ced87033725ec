package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/core/assistant"
	"github.com/markdave123-py/Auditra/internal/models"
)

const (
	previewLength = 60
	apology       = "Sorry, I couldn't process your message right now. Please try again in a moment."
)

// HandleTurn stores the user's message and returns it. The assistant reply is
// generated, stored and published in the background; every stored user message
// gets exactly one reply, which is an apology when generation fails.
func (o *Orchestrator) HandleTurn(ctx context.Context, conv *models.Conversation, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.WrapError(models.ErrInvalidInput, "handle turn", errors.New("message content is required"))
	}
	if conv.Closed {
		return nil, models.WrapError(models.ErrConflict, "handle turn", fmt.Errorf("conversation %s is closed", conv.ID))
	}

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Content:        content,
		Timestamp:      nowUTC(),
	}
	if err := o.db.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	o.record(ctx, conv.UserID, models.ActivityChat, models.ActivityDetails{
		Title:       "Conversation message",
		Description: preview(content, previewLength),
		Status:      "sent",
	}, "")

	o.pending.Add(1)
	go o.reply(conv, msg)

	return msg, nil
}

func (o *Orchestrator) reply(conv *models.Conversation, userMsg *models.Message) {
	defer o.pending.Done()
	log := o.log.With("conversation_id", conv.ID, "user_id", conv.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.ReplyTimeout)
	defer cancel()

	reply, err := o.generateReply(ctx, conv, userMsg)

	out := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         models.SenderAssistant,
		Timestamp:      after(userMsg.Timestamp),
	}
	outcome := "replied"
	if err != nil || strings.TrimSpace(reply.Content) == "" {
		log.Warn("reply generation failed, sending apology", "error", err)
		out.Content = apology
		outcome = "apology"
	} else {
		out.Content = reply.Content
		out.ReasoningLog = reply.ReasoningLog
	}

	// Persist on a fresh deadline: a generation timeout must not lose the reply.
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer storeCancel()
	if err := o.db.CreateMessage(storeCtx, out); err != nil {
		log.Error("assistant reply not stored", "error", err)
		o.metrics.ChatTurn("lost")
		return
	}
	o.publish(storeCtx, conv.UserID, models.MessageEvent(out))
	o.metrics.ChatTurn(outcome)
}

func (o *Orchestrator) generateReply(ctx context.Context, conv *models.Conversation, userMsg *models.Message) (reply assistant.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during reply: %v", r)
		}
	}()

	all, err := o.db.ListMessages(ctx, conv.ID)
	if err != nil {
		return assistant.Reply{}, err
	}
	history := make([]models.Message, 0, len(all))
	for _, m := range all {
		if m.ID != userMsg.ID {
			history = append(history, m)
		}
	}

	return o.responder.Generate(ctx, assistant.Turn{
		History:      history,
		Message:      userMsg.Content,
		Jurisdiction: o.jurisdiction(ctx, conv.UserID),
		Context:      o.retrieve(ctx, conv.UserID, userMsg.Content),
	})
}

// retrieve returns excerpts of the user's documents closest to the message.
func (o *Orchestrator) retrieve(ctx context.Context, userID, query string) []string {
	if o.embedder == nil {
		return nil
	}
	vecs, err := o.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		o.log.Debug("context embedding failed", "user_id", userID, "error", err)
		return nil
	}
	chunks, err := o.db.SearchUserChunks(ctx, userID, vecs[0], o.cfg.ContextChunks)
	if err != nil {
		o.log.Debug("context search failed", "user_id", userID, "error", err)
		return nil
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Text)
	}
	return out
}

// after returns a timestamp strictly later than t at the storage precision.
func after(t time.Time) time.Time {
	now := nowUTC()
	if floor := t.Add(time.Microsecond); now.Before(floor) {
		return floor
	}
	return now
}
