package registry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connPair upgrades one websocket connection and returns both ends.
func connPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()

	serverCh := make(chan *ws.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := ws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-serverCh
	t.Cleanup(func() { server.Close() })
	return server, client
}

func TestClientWriter_DeliversInOrder(t *testing.T) {
	server, client := connPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())
	defer cw.stop()

	require.True(t, cw.trySend([]byte("first")))
	require.True(t, cw.trySend([]byte("second")))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "first", string(msg))

	_, msg, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "second", string(msg))
}

func TestClientWriter_StopIsIdempotent(t *testing.T) {
	server, _ := connPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())

	cw.stop()
	cw.stop() // second call must not panic or block
}

func TestClientWriter_StopWithCloseSendsCloseFrame(t *testing.T) {
	server, client := connPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())

	cw.stopWithClose(ws.ClosePolicyViolation, "session revoked")

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, ws.IsCloseError(err, ws.ClosePolicyViolation))
}

func TestClientWriter_StopTolerantOfClosedPeer(t *testing.T) {
	server, client := connPair(t)
	cw := newClientWriter(server, clockwork.NewRealClock())

	client.Close()
	cw.stopWithClose(ws.ClosePolicyViolation, "session revoked") // must not panic
}
