// internal/handlers/transport.go
package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/dominoes/internal/protocol"
)

// Transport moves whole JSON messages. ReadMessage is called only from a
// session's read loop and WriteMessage only from its write pump.
type Transport interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	// Close tears the connection down. code is a WebSocket close code; stream
	// transports ignore it.
	Close(code websocket.StatusCode, reason string) error
	RemoteAddr() string
}

// tcpTransport frames messages over a byte stream.
type tcpTransport struct {
	conn     net.Conn
	r        *bufio.Reader
	maxFrame int
}

func newTCPTransport(conn net.Conn, maxFrame int) *tcpTransport {
	return &tcpTransport{conn: conn, r: bufio.NewReader(conn), maxFrame: maxFrame}
}

// ReadMessage blocks until a frame arrives or the connection closes; ctx is
// honoured by closing the connection.
func (t *tcpTransport) ReadMessage(_ context.Context) ([]byte, error) {
	return protocol.ReadFrame(t.r, t.maxFrame)
}

func (t *tcpTransport) WriteMessage(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return protocol.WriteFrame(t.conn, data)
}

func (t *tcpTransport) Close(_ websocket.StatusCode, _ string) error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// wsTransport carries one JSON message per text frame.
type wsTransport struct {
	c      *websocket.Conn
	remote string
}

func newWSTransport(c *websocket.Conn, remote string, maxFrame int) *wsTransport {
	c.SetReadLimit(int64(maxFrame))
	return &wsTransport{c: c, remote: remote}
}

func (t *wsTransport) ReadMessage(ctx context.Context) ([]byte, error) {
	for {
		typ, msg, err := t.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		return msg, nil
	}
}

func (t *wsTransport) WriteMessage(ctx context.Context, data []byte) error {
	return t.c.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close(code websocket.StatusCode, reason string) error {
	return t.c.Close(code, reason)
}

func (t *wsTransport) RemoteAddr() string {
	return t.remote
}
