package mockbackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

const (
	hubWriteTimeout   = 10 * time.Second
	hubSendBufferSize = 64
	startingBalance   = 1000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan domain.Envelope

	userID   domain.UserID
	username string
	role     domain.Role
	channels map[domain.ChannelID]bool
}

// callRecord remembers who started a call and which message it rode in on, so
// lifecycle events can point both parties back at it.
type callRecord struct {
	callerID  domain.UserID
	targetID  domain.UserID
	channelID domain.ChannelID
	messageID domain.MessageID
}

// Hub owns all live WebSocket connections and fans events out. It also keeps
// the per-user token balances and stream ownership the event flows need.
type Hub struct {
	logger *zap.SugaredLogger

	mu       sync.Mutex
	clients  map[*hubClient]bool
	byUser   map[domain.UserID]*hubClient
	calls    map[string]*callRecord
	streams  map[domain.StreamID]domain.ActiveStream
	balances map[domain.UserID]int
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:   logger,
		clients:  make(map[*hubClient]bool),
		byUser:   make(map[domain.UserID]*hubClient),
		calls:    make(map[string]*callRecord),
		streams:  make(map[domain.StreamID]domain.ActiveStream),
		balances: make(map[domain.UserID]int),
	}
}

// ServeWS upgrades the request and runs the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, claims *Claims) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &hubClient{
		hub:      h,
		conn:     conn,
		send:     make(chan domain.Envelope, hubSendBufferSize),
		userID:   claims.UserID,
		username: claims.Username,
		role:     claims.Role,
		channels: make(map[domain.ChannelID]bool),
	}

	h.register(client)
	go client.writePump()
	client.readPump()
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	// A second connection for the same user replaces the first.
	if old, ok := h.byUser[c.userID]; ok {
		delete(h.clients, old)
		close(old.send)
	}
	h.clients[c] = true
	h.byUser[c.userID] = c
	if _, ok := h.balances[c.userID]; !ok {
		h.balances[c.userID] = startingBalance
	}

	online := make([]domain.UserID, 0, len(h.byUser))
	for id := range h.byUser {
		online = append(online, id)
	}
	streams := make([]domain.ActiveStream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	balance := h.balances[c.userID]
	h.mu.Unlock()

	h.logger.Infow("client connected", "user_id", c.userID, "username", c.username)

	// Paint the full picture for the newcomer, then announce them.
	c.trySend(mustEnvelope(domain.EventUsersOnline, domain.BulkPresencePayload{UserIDs: online}))
	c.trySend(mustEnvelope(domain.EventTokensUpdated, domain.TokensPayload{Balance: balance}))
	for _, s := range streams {
		c.trySend(mustEnvelope(domain.EventStreamStarted, s))
	}
	h.broadcastExcept(c, domain.EventUserOnline, domain.PresencePayload{UserID: c.userID})
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	if h.byUser[c.userID] == c {
		delete(h.byUser, c.userID)
	}
	close(c.send)
	h.mu.Unlock()

	h.logger.Infow("client disconnected", "user_id", c.userID)
	h.broadcastExcept(nil, domain.EventUserOffline, domain.PresencePayload{UserID: c.userID})
}

func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		var env domain.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.hub.handleEvent(c, env)
	}
}

func (c *hubClient) writePump() {
	for env := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// trySend drops the frame if the client's buffer is full rather than blocking
// the hub.
func (c *hubClient) trySend(env domain.Envelope) {
	select {
	case c.send <- env:
	default:
		c.hub.logger.Warnw("dropping frame for slow client", "user_id", c.userID, "event", env.Event)
	}
}

func mustEnvelope(event domain.EventName, data interface{}) domain.Envelope {
	env, err := domain.NewEnvelope(event, data)
	if err != nil {
		// Payload types here are all plain structs; marshal cannot fail.
		panic(err)
	}
	return env
}

// broadcastExcept sends to every connected client except the given one.
func (h *Hub) broadcastExcept(except *hubClient, event domain.EventName, data interface{}) {
	env := mustEnvelope(event, data)
	h.mu.Lock()
	targets := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.trySend(env)
	}
}

// broadcastChannel sends to every member of a channel, optionally skipping
// the sender.
func (h *Hub) broadcastChannel(channelID domain.ChannelID, except *hubClient, event domain.EventName, data interface{}) {
	env := mustEnvelope(event, data)
	h.mu.Lock()
	targets := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		if c != except && c.channels[channelID] {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.trySend(env)
	}
}

func (h *Hub) sendToUser(userID domain.UserID, event domain.EventName, data interface{}) bool {
	h.mu.Lock()
	target, ok := h.byUser[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	target.trySend(mustEnvelope(event, data))
	return true
}
