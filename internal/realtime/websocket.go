package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// TokenVerifier returns the user id carried by a bearer token.
type TokenVerifier func(token string) (string, error)

// inboundMessage is the only client-to-server message: the auth handshake.
type inboundMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	UserIDAlt string `json:"userId"`
	Token     string `json:"token"`
}

type controlMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WSHandler upgrades requests to websocket connections registered with the hub.
type WSHandler struct {
	hub      *Hub
	verify   TokenVerifier
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewWSHandler builds the endpoint. With a nil verify the handshake user id is
// trusted as-is; otherwise a matching token is required.
func NewWSHandler(hub *Hub, verify TokenVerifier, allowedOrigins []string, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		verify: verify,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: logger.OrNop(log).With("component", "websocket"),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.Register()
	h.log.Debug("websocket connected", "conn_id", client.ID)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

func (h *WSHandler) readPump(conn *websocket.Conn, c *Client) {
	defer func() {
		h.hub.Unregister(c.ID)
		_ = conn.Close()
		h.log.Debug("websocket disconnected", "conn_id", c.ID)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", "conn_id", c.ID, "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, controlMessage{Type: "error", Error: "malformed message"})
			continue
		}
		switch msg.Type {
		case "auth":
			h.authenticate(c, msg)
		default:
			if _, ok := h.hub.UserOf(c.ID); !ok {
				h.reply(c, controlMessage{Type: "error", Error: "not authenticated"})
				continue
			}
			h.reply(c, controlMessage{Type: "error", Error: "unsupported message type"})
		}
	}
}

func (h *WSHandler) authenticate(c *Client, msg inboundMessage) {
	userID := strings.TrimSpace(msg.UserID)
	if userID == "" {
		userID = strings.TrimSpace(msg.UserIDAlt)
	}

	if h.verify != nil {
		tokenUser, err := h.verify(msg.Token)
		if err != nil {
			h.reply(c, controlMessage{Type: "auth_error", Error: "invalid token"})
			return
		}
		if userID == "" {
			userID = tokenUser
		}
		if tokenUser != userID {
			h.reply(c, controlMessage{Type: "auth_error", Error: "token does not match user"})
			return
		}
	}

	if err := h.hub.Authenticate(c.ID, userID); err != nil {
		h.reply(c, controlMessage{Type: "auth_error", Error: authErrorText(err)})
		return
	}
	h.log.Debug("websocket authenticated", "conn_id", c.ID, "user_id", userID)
	h.reply(c, controlMessage{Type: "auth_ok", UserID: userID})
}

func authErrorText(err error) string {
	if models.IsKind(err, models.ErrConflict) {
		return "connection already authenticated"
	}
	return "user id is required"
}

func (h *WSHandler) reply(c *Client, msg controlMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// writePump is the only writer on conn.
func (h *WSHandler) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload := <-c.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
