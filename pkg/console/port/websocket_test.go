package port

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	return conn
}

func TestWebSocketPort(t *testing.T) {
	p := NewWebSocketPort()
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	defer p.Close()

	// no client, output is dropped.
	n, err := p.Write([]byte("dropped"))
	require.NoError(t, err)
	require.Equal(t, 7, n)

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, p.Connected, time.Second, time.Millisecond)

	require.NoError(t, websocket.Message.Send(conn, "con\r"))
	buf := make([]byte, 2)
	n, err = p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "co", string(buf[:n]))
	n, err = p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "n\r", string(buf[:n]))

	_, err = p.Write([]byte("echo"))
	require.NoError(t, err)
	var msg string
	require.NoError(t, websocket.Message.Receive(conn, &msg))
	require.Equal(t, "echo", msg)
}

func TestWebSocketPortReplacesClient(t *testing.T) {
	p := NewWebSocketPort()
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	defer p.Close()

	first := dial(t, srv)
	defer first.Close()
	require.Eventually(t, p.Connected, time.Second, time.Millisecond)
	second := dial(t, srv)
	defer second.Close()

	// the first connection is closed by the port.
	var msg string
	require.Error(t, websocket.Message.Receive(first, &msg))

	require.NoError(t, websocket.Message.Send(second, "pub\r"))
	buf := make([]byte, 16)
	n, err := p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "pub\r", string(buf[:n]))
}

func TestWebSocketPortClose(t *testing.T) {
	p := NewWebSocketPort()
	require.NoError(t, p.Close())
	_, err := p.Read(make([]byte, 1))
	require.Error(t, err)
	require.NoError(t, p.Close())
}
