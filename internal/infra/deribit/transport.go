package deribit

import (
	"context"
	"sync"
	"time"

	"deribit_go/internal/domain"

	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Transport is a strict point-to-point text pipe. Send and Receive may
// block on network I/O; nothing above this layer assumes any buffering of
// multiple in-flight messages.
type Transport interface {
	Send(text string) error
	Receive() (string, error)
	Close() error
}

// wsTransport owns the single WebSocket connection.
type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // gorilla allows one concurrent writer
}

func dialWS(ctx context.Context, url string) (*wsTransport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "dial", Err: err}
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Send(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return &domain.TransportError{Op: "write", Err: err}
	}
	return nil
}

func (t *wsTransport) Receive() (string, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		return "", &domain.TransportError{Op: "read", Err: err}
	}
	return string(msg), nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
