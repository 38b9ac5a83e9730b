// Package transport implements the real-time transport port over WebSocket.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// WebSocketTransport dials the backend realtime endpoint with bearer
// credentials. Each Dial produces an independent connection; the reconciler
// owns at most one at a time.
type WebSocketTransport struct {
	url          string
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       *zap.SugaredLogger
}

var _ ports.Transport = (*WebSocketTransport)(nil)

func NewWebSocketTransport(url string, pingInterval, writeTimeout time.Duration, logger *zap.SugaredLogger) *WebSocketTransport {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &WebSocketTransport{
		url:          url,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context, creds ports.Credentials) (ports.Conn, error) {
	header := http.Header{}
	if creds.Token != "" {
		header.Set("Authorization", "Bearer "+creds.Token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	conn := &wsConn{
		ws:           ws,
		writeTimeout: t.writeTimeout,
		logger:       t.logger,
		done:         make(chan struct{}),
	}

	// The read deadline rides the pong cycle: miss two pings and the read
	// loop errors out, handing control back to the reconciler.
	readTimeout := 2 * t.pingInterval
	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go conn.pingLoop(t.pingInterval)

	t.logger.Debugw("websocket connection established", "user_id", creds.UserID)
	return conn, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.SugaredLogger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsConn) ReadEvent() (domain.Envelope, error) {
	var env domain.Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return domain.Envelope{}, err
	}
	return env, nil
}

func (c *wsConn) WriteEvent(env domain.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(env)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// pingLoop keeps the connection alive. A failed ping closes the socket so the
// blocked read returns and the reconciler can take over.
func (c *wsConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debugw("ping failed, closing connection", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
