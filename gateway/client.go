package gateway

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ contract.EventSink = (*Client)(nil)

var (
	errClientClosed = fmt.Errorf("client closed")
	errSlowClient   = fmt.Errorf("client send buffer full")
)

// Client is the websocket side of a connection. Writes go through a bounded
// buffer drained by a single writer goroutine, so a slow client never blocks
// the fabric or the other members of its room.
type Client struct {
	id      domain.ConnectionID
	ws      *websocket.Conn
	log     *slog.Logger
	metrics *observability.Metrics
	opts    Options

	send      chan event.Outbound
	done      chan struct{}
	closeOnce sync.Once
	closeCode int
	closeText string
}

func newClient(id domain.ConnectionID, ws *websocket.Conn, log *slog.Logger, metrics *observability.Metrics, opts Options) *Client {
	return &Client{
		id:        id,
		ws:        ws,
		log:       log,
		metrics:   metrics,
		opts:      opts,
		send:      make(chan event.Outbound, opts.BufferSize),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

// Consume queues e for the writer. It never blocks: a full buffer drops e.
func (c *Client) Consume(_ context.Context, e event.Outbound) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- e:
		return nil
	default:
		c.metrics.SinkDropped.Inc()
		return errSlowClient
	}
}

// Close stops the writer, which sends a close frame and closes the socket.
func (c *Client) Close(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

// writePump owns every write on the socket, pings included.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case e := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteJSON(e); err != nil {
				c.log.Debug("Write failed, closing client", "connection_id", c.id, "error", err)
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug("Ping failed, closing client", "connection_id", c.id, "error", err)
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			c.flush()
			if c.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(c.closeCode, c.closeText)
				_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
			}
			return
		}
	}
}

// flush writes what is already queued, error frames included, before closing.
func (c *Client) flush() {
	for {
		select {
		case e := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteJSON(e); err != nil {
				return
			}
		default:
			return
		}
	}
}
