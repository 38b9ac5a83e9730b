package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

var upgrader = websocket.Upgrader{}

func startEchoServer(t *testing.T, gotAuth *string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotAuth != nil {
			*gotAuth = r.Header.Get("Authorization")
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var env domain.Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			if err := ws.WriteJSON(env); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDialSendsBearerToken(t *testing.T) {
	var gotAuth string
	url := startEchoServer(t, &gotAuth)
	tr := NewWebSocketTransport(url, time.Minute, time.Second, zaptest.NewLogger(t).Sugar())

	conn, err := tr.Dial(context.Background(), ports.Credentials{Token: "tok", UserID: "u-1"})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestEventRoundTrip(t *testing.T) {
	url := startEchoServer(t, nil)
	tr := NewWebSocketTransport(url, time.Minute, time.Second, zaptest.NewLogger(t).Sugar())

	conn, err := tr.Dial(context.Background(), ports.Credentials{Token: "tok"})
	require.NoError(t, err)
	defer conn.Close()

	out, err := domain.NewEnvelope(domain.EventChannelJoin, domain.ChannelPayload{ChannelID: "chan-1"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteEvent(out))

	in, err := conn.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, domain.EventChannelJoin, in.Event)

	var payload domain.ChannelPayload
	require.NoError(t, json.Unmarshal(in.Data, &payload))
	assert.Equal(t, domain.ChannelID("chan-1"), payload.ChannelID)
}

func TestReadAfterCloseFails(t *testing.T) {
	url := startEchoServer(t, nil)
	tr := NewWebSocketTransport(url, time.Minute, time.Second, zaptest.NewLogger(t).Sugar())

	conn, err := tr.Dial(context.Background(), ports.Credentials{})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = conn.ReadEvent()
	assert.Error(t, err)
}

func TestDialFailure(t *testing.T) {
	tr := NewWebSocketTransport("ws://127.0.0.1:1", time.Minute, time.Second, zaptest.NewLogger(t).Sugar())
	_, err := tr.Dial(context.Background(), ports.Credentials{})
	assert.Error(t, err)
}
