package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/restopos/api/internal/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only answer pings; anything larger is a misbehaving peer.
	maxMessageSize = 512

	sendBuffer = 256
)

// EventSubscribed is the first frame of every connection. Its payload lists
// the channels the caller will receive.
const EventSubscribed = "subscribed"

// Client is one live connection and the channels it listens on.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	channels []string
	send     chan []byte
}

// readPump discards inbound frames and unregisters the client on disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warningf("websocket read: %v", err)
			}
			return
		}
	}
}

// writePump sends one text frame per event and keeps the connection alive
// with pings. It exits when the hub closes send or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades GET /ws?token=JWT. The token is passed as a query
// parameter because browsers cannot set headers on a websocket handshake.
type Handler struct {
	hub      *Hub
	secret   string
	revoked  *auth.Revocations
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint. Browser handshakes are accepted
// from allowedOrigins only; "*" allows any origin. Requests without an Origin
// header (native clients) are always accepted. Users in revoked cannot connect.
func NewHandler(hub *Hub, jwtSecret string, revoked *auth.Revocations, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, secret: jwtSecret, revoked: revoked}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			logger.Warningf("websocket origin %q rejected", origin)
			return false
		},
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(h.secret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if h.revoked.Revoked(claims.UserID) {
		http.Error(w, "account is disabled", http.StatusUnauthorized)
		return
	}

	channels := ChannelsFor(claims.Role, claims.TableID)
	if len(channels) == 0 {
		http.Error(w, "no live feed for this role", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		logger.Debugf("websocket upgrade: %v", err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		channels: channels,
		send:     make(chan []byte, sendBuffer),
	}

	// Queue the greeting before registering so it is always the first frame.
	client.send <- mustJSON(Event{Type: EventSubscribed, Payload: mustJSON(map[string][]string{"channels": channels})})

	h.hub.register <- client
	logger.Infof("%s connected to %v", claims.Role, channels)

	go client.writePump()
	go client.readPump()
}

// mustJSON marshals values built here from strings only; failure is a bug.
func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
