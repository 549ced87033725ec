package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/markdave123-py/Auditra/internal/core/database"
	"github.com/markdave123-py/Auditra/internal/models"
)

type echoTurns struct {
	store *db.MemoryClient
}

func (e echoTurns) HandleTurn(ctx context.Context, conv *models.Conversation, content string) (*models.Message, error) {
	msg := &models.Message{ID: "m-" + content, ConversationID: conv.ID, Sender: models.SenderUser, Content: content, Timestamp: nowUTC()}
	return msg, e.store.CreateMessage(ctx, msg)
}

func TestConversationLifecycle(t *testing.T) {
	store := db.NewMemoryClient()
	svc := NewConversationService(store, echoTurns{store: store})
	ctx := context.Background()

	conv, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	again, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	_, err = svc.Send(ctx, "u1", conv.ID, "hello")
	require.NoError(t, err)
	msgs, err := svc.Messages(ctx, "u1", conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = svc.Send(ctx, "u2", conv.ID, "intruder")
	assert.True(t, models.IsKind(err, models.ErrNotFound))
	_, err = svc.Messages(ctx, "u2", conv.ID)
	assert.True(t, models.IsKind(err, models.ErrNotFound))

	require.NoError(t, svc.Close(ctx, "u1", conv.ID))
	next, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, conv.ID, next.ID)
}

func TestActivityListClampsLimit(t *testing.T) {
	store := db.NewMemoryClient()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateActivity(context.Background(), &models.Activity{ID: string(rune('a' + i)), UserID: "u1", Timestamp: nowUTC()}))
	}
	acts, err := NewActivityService(store).List(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, acts, 3)
}
