package realtime

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/models"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestWebsocketAuthThenEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(NewWSHandler(hub, nil, nil, nil))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "userId": "u1"}))

	var ack controlMessage
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_ok", ack.Type)
	assert.Equal(t, "u1", ack.UserID)

	hub.Publish(context.Background(), "u2", models.DocumentEvent(&models.Document{ID: "not-mine"}))
	hub.Publish(context.Background(), "u1", models.DocumentEvent(&models.Document{ID: "d1", Status: models.StatusProcessing}))

	var event models.Event
	readJSON(t, conn, &event)
	assert.Equal(t, models.EventDocumentUpdate, event.Type)
	assert.Equal(t, "d1", event.Document.ID)
}

func TestWebsocketRequiresMatchingToken(t *testing.T) {
	hub := NewHub(nil, nil)
	verify := func(token string) (string, error) {
		if token == "good" {
			return "u1", nil
		}
		return "", errors.New("bad token")
	}
	srv := httptest.NewServer(NewWSHandler(hub, verify, nil, nil))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)

	var ack controlMessage
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "user_id": "u1", "token": "bad"}))
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_error", ack.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "user_id": "u2", "token": "good"}))
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_error", ack.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "user_id": "u1", "token": "good"}))
	readJSON(t, conn, &ack)
	assert.Equal(t, "auth_ok", ack.Type)
}

func TestWebsocketRejectsUnknownMessages(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(NewWSHandler(hub, nil, nil, nil))
	t.Cleanup(srv.Close)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var reply controlMessage
	readJSON(t, conn, &reply)
	assert.Equal(t, "error", reply.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	readJSON(t, conn, &reply)
	assert.Equal(t, "not authenticated", reply.Error)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "user_id": "u1"}))
	readJSON(t, conn, &reply)
	require.Equal(t, "auth_ok", reply.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	readJSON(t, conn, &reply)
	assert.Equal(t, "unsupported message type", reply.Error)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173/"})
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
