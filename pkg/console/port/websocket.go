package port

import (
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// WebSocketPort serves the console to a single websocket client. A newly
// connected client replaces the previous one. Output written while no
// client is connected is discarded.
type WebSocketPort struct {
	listener net.Listener
	server   *http.Server

	lock    sync.Mutex
	conn    *websocket.Conn
	dataCh  chan []byte
	closeCh chan struct{}
	pending []byte
	closed  bool
}

// NewWebSocketPort creates a port, serve it with Handler.
func NewWebSocketPort() *WebSocketPort {
	return &WebSocketPort{
		dataCh:  make(chan []byte),
		closeCh: make(chan struct{}),
	}
}

// ListenWebSocket listens on addr and serves the console at "/".
func ListenWebSocket(addr string) (*WebSocketPort, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	p := NewWebSocketPort()
	p.listener = ln
	p.server = &http.Server{Handler: p.Handler()}
	go func() {
		if err := p.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket console: %v", err)
		}
	}()
	glog.Infof("websocket console at ws://%s/", ln.Addr())
	return p, nil
}

// Addr is the listening address, nil if not created by ListenWebSocket.
func (p *WebSocketPort) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Handler returns the websocket handler.
func (p *WebSocketPort) Handler() http.Handler {
	return websocket.Handler(p.serveConn)
}

func (p *WebSocketPort) serveConn(conn *websocket.Conn) {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		conn.Close()
		return
	}
	prev := p.conn
	p.conn = conn
	p.lock.Unlock()
	if prev != nil {
		glog.Infof("console client %s replaced by %s", prev.Request().RemoteAddr, conn.Request().RemoteAddr)
		prev.Close()
	}

	defer func() {
		p.lock.Lock()
		if p.conn == conn {
			p.conn = nil
		}
		p.lock.Unlock()
		conn.Close()
	}()
	for {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			if err != io.EOF {
				glog.V(1).Infof("console client: %v", err)
			}
			return
		}
		select {
		case p.dataCh <- data:
		case <-p.closeCh:
			return
		}
	}
}

// Read implements io.Reader. It blocks until a client sends data.
func (p *WebSocketPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case data := <-p.dataCh:
			p.pending = data
		case <-p.closeCh:
			return 0, io.EOF
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

// Write implements io.Writer.
func (p *WebSocketPort) Write(b []byte) (int, error) {
	p.lock.Lock()
	conn := p.conn
	p.lock.Unlock()
	if conn == nil {
		return len(b), nil
	}
	if err := websocket.Message.Send(conn, string(b)); err != nil {
		glog.V(1).Infof("console client: %v", err)
	}
	return len(b), nil
}

// Close disconnects the client and stops the server.
func (p *WebSocketPort) Close() error {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.conn = nil
	close(p.closeCh)
	p.lock.Unlock()
	if conn != nil {
		conn.Close()
	}
	if p.server != nil {
		return p.server.Close()
	}
	return nil
}

// Connected reports whether a client is attached.
func (p *WebSocketPort) Connected() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.conn != nil
}
