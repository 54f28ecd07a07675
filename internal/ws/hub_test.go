package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevDeskHQ/devdesk_api/internal/models"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newHubServer runs a hub behind an httptest server that registers every
// incoming socket and pumps its read loop, the way the HTTP handler does.
func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	var next atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.Add(fmt.Sprintf("client-%d", next.Add(1)), conn)
		hub.ReadLoop(client)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHubSendsConnectedAck(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)

	conn := dialHub(t, srv)
	env := readEnvelope(t, conn)
	assert.Equal(t, TypeConnected, env.Type)
	assert.Nil(t, env.Entry)
}

func TestHubBroadcastReachesEveryConnectedClient(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)

	conn1 := dialHub(t, srv)
	conn2 := dialHub(t, srv)
	require.Equal(t, TypeConnected, readEnvelope(t, conn1).Type)
	require.Equal(t, TypeConnected, readEnvelope(t, conn2).Type)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(&models.ActivityLog{ID: 9, Agent: "builder", Action: "write_file", Level: "info"})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		env := readEnvelope(t, conn)
		assert.Equal(t, TypeActivity, env.Type)
		require.NotNil(t, env.Entry)
		assert.Equal(t, 9, env.Entry.ID)
		assert.Equal(t, "write_file", env.Entry.Action)
	}
}

func TestHubDoesNotReplayToLateConnectors(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)

	hub.Broadcast(&models.ActivityLog{ID: 1, Action: "before_connect"})

	conn := dialHub(t, srv)
	require.Equal(t, TypeConnected, readEnvelope(t, conn).Type)

	// Nothing but the ack: the hub keeps no history.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var env Envelope
	err := conn.ReadJSON(&env)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline"))
}

func TestHubPingPong(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)

	conn := dialHub(t, srv)
	require.Equal(t, TypeConnected, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Envelope{Type: TypePing}))
	env := readEnvelope(t, conn)
	assert.Equal(t, TypePong, env.Type)
}

func TestHubIgnoresUnknownInbound(t *testing.T) {
	hub := NewHub()
	srv := newHubServer(t, hub)

	conn := dialHub(t, srv)
	require.Equal(t, TypeConnected, readEnvelope(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	require.NoError(t, conn.WriteJSON(Envelope{Type: "subscribe"}))

	// The connection stays up and still answers pings.
	require.NoError(t, conn.WriteJSON(Envelope{Type: TypePing}))
	assert.Equal(t, TypePong, readEnvelope(t, conn).Type)
}

func TestHubDropsClientAfterFailedWrite(t *testing.T) {
	hub := NewHub()

	// No read loop here: the only way the hub can learn the socket is dead is
	// a failed broadcast write.
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Add("doomed", conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)
	<-registered
	require.Equal(t, TypeConnected, readEnvelope(t, conn).Type)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.Close())

	// Writes to the dead socket eventually fail and the client is dropped.
	require.Eventually(t, func() bool {
		hub.Broadcast(&models.ActivityLog{ID: 2, Action: "noop"})
		return hub.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Positive(t, hub.SendFailures())
}
