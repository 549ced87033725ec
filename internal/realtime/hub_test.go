package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/models"
)

func recvEvent(t *testing.T, c *Client, timeout time.Duration) models.Event {
	t.Helper()
	select {
	case payload := <-c.Outbound:
		var e models.Event
		require.NoError(t, json.Unmarshal(payload, &e))
		return e
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return models.Event{}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.Outbound:
		t.Fatalf("unexpected event: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversOnlyToMatchingUser(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := hub.Register()
	bob := hub.Register()
	anon := hub.Register()
	require.NoError(t, hub.Authenticate(alice.ID, "alice"))
	require.NoError(t, hub.Authenticate(bob.ID, "bob"))

	doc := &models.Document{ID: "d1", UserID: "alice", Status: models.StatusCompleted}
	hub.Publish(context.Background(), "alice", models.DocumentEvent(doc))

	got := recvEvent(t, alice, time.Second)
	assert.Equal(t, models.EventDocumentUpdate, got.Type)
	assert.Equal(t, "d1", got.Document.ID)
	assertNoEvent(t, bob)
	assertNoEvent(t, anon)
}

func TestHubDeliversToEveryConnectionOfUserInOrder(t *testing.T) {
	hub := NewHub(nil, nil)
	tab1 := hub.Register()
	tab2 := hub.Register()
	require.NoError(t, hub.Authenticate(tab1.ID, "u1"))
	require.NoError(t, hub.Authenticate(tab2.ID, "u1"))

	for _, id := range []string{"m1", "m2"} {
		hub.Publish(context.Background(), "u1", models.MessageEvent(&models.Message{ID: id, ConversationID: "c1"}))
	}
	for _, c := range []*Client{tab1, tab2} {
		assert.Equal(t, "m1", recvEvent(t, c, time.Second).Message.ID)
		second := recvEvent(t, c, time.Second)
		assert.Equal(t, "m2", second.Message.ID)
		assert.Equal(t, "c1", second.ConversationID)
	}
}

func TestAuthenticateIsSetOnce(t *testing.T) {
	hub := NewHub(nil, nil)
	c := hub.Register()

	assert.True(t, models.IsKind(hub.Authenticate(c.ID, " "), models.ErrInvalidInput))
	require.NoError(t, hub.Authenticate(c.ID, "u1"))
	require.NoError(t, hub.Authenticate(c.ID, "u1"))
	assert.True(t, models.IsKind(hub.Authenticate(c.ID, "u2"), models.ErrConflict))
	assert.True(t, models.IsKind(hub.Authenticate("missing", "u1"), models.ErrNotFound))

	user, ok := hub.UserOf(c.ID)
	assert.True(t, ok)
	assert.Equal(t, "u1", user)
}

func TestUnregisteredClientGetsNothing(t *testing.T) {
	hub := NewHub(nil, nil)
	c := hub.Register()
	require.NoError(t, hub.Authenticate(c.ID, "u1"))
	hub.Unregister(c.ID)

	hub.Publish(context.Background(), "u1", models.DocumentEvent(&models.Document{ID: "d1"}))
	assertNoEvent(t, c)
	select {
	case <-c.Done():
	default:
		t.Fatal("done should be closed after unregister")
	}
	hub.Unregister(c.ID)
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, nil)
	c := hub.Register()
	require.NoError(t, hub.Authenticate(c.ID, "u1"))

	for i := 0; i < defaultOutboundBuffer+10; i++ {
		hub.Publish(context.Background(), "u1", models.DocumentEvent(&models.Document{ID: "d"}))
	}
	assert.Len(t, c.Outbound, defaultOutboundBuffer)
}
