package ipc

import (
	"log/slog"
	"net"
)

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Transport moves envelopes to and from one host. The framed socket and the
// websocket transports both satisfy it.
type Transport interface {
	ReadEnvelope() (Envelope, error)
	WriteEnvelope(env Envelope) error
	Close() error
}

// Connection represents a single host session talking to the sidecar.
// Each game player gets its own connection, identified after the hello handshake.
type Connection struct {
	transport Transport
	handlers  map[string]Handler
	Player    string
}

func NewConnection(t Transport, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		transport: t,
		handlers:  handlers,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

// ReadLoop blocks until the connection closes or errors. It owns the transport
// lifetime so callers don't need to track cleanup.
func (c *Connection) ReadLoop() {
	defer c.transport.Close()

	for {
		env, err := c.transport.ReadEnvelope()
		if err != nil {
			slog.Info("connection read ended", "player", c.Player, "error", err)
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "type", env.Type)
			continue
		}

		resp, err := handler(env)
		if err != nil {
			slog.Error("handler error", "type", env.Type, "error", err)
			continue
		}

		if resp != nil {
			if err := c.transport.WriteEnvelope(*resp); err != nil {
				slog.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			slog.Debug("sent response", "type", resp.Type, "player", c.Player)
		}
	}
}

// FramedTransport speaks length-prefixed envelopes over a stream socket.
type FramedTransport struct {
	conn net.Conn
}

func NewFramedTransport(conn net.Conn) *FramedTransport {
	return &FramedTransport{conn: conn}
}

func (t *FramedTransport) ReadEnvelope() (Envelope, error) { return ReadEnvelope(t.conn) }

func (t *FramedTransport) WriteEnvelope(env Envelope) error { return WriteEnvelope(t.conn, env) }

func (t *FramedTransport) Close() error { return t.conn.Close() }
