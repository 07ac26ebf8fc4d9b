package ipc

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Hosts that cannot open a Unix socket (browser harnesses, remote runners)
// connect over websocket instead. One text message carries one envelope.

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// WebsocketTransport adapts a websocket connection to Transport.
type WebsocketTransport struct {
	conn *websocket.Conn
}

func NewWebsocketTransport(conn *websocket.Conn) *WebsocketTransport {
	conn.SetReadLimit(maxMessageLength)
	return &WebsocketTransport{conn: conn}
}

func (t *WebsocketTransport) ReadEnvelope() (Envelope, error) {
	_ = t.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	kind, msg, err := t.conn.ReadMessage()
	if err != nil {
		return Envelope{}, fmt.Errorf("read message: %w", err)
	}
	if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
		return Envelope{}, fmt.Errorf("unexpected message kind: %d", kind)
	}
	return decodeEnvelope(msg)
}

func (t *WebsocketTransport) WriteEnvelope(env Envelope) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := t.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (t *WebsocketTransport) Close() error {
	err := t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		slog.Debug("websocket close frame not sent", "error", err)
	}
	return t.conn.Close()
}

// WebsocketHandler upgrades each request and hands the resulting transport to
// serve, which is expected to block for the session's lifetime.
func WebsocketHandler(serve func(Transport)) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true }, // local harnesses only
	}
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		slog.Info("websocket connection accepted", "remote", r.RemoteAddr)
		serve(NewWebsocketTransport(conn))
	}
}
