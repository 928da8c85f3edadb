package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Pings must arrive before the peer's read deadline
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound frame accepted
	maxMessageSize = 64 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is a websocket connection. Send is safe from any goroutine and
// never blocks; the send queue is drained by the write pump.
type Client struct {
	id          ConnID
	ws          *websocket.Conn
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
	logger      *slog.Logger
}

// NewClient wraps an upgraded websocket
func NewClient(id ConnID, ws *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		ws:          ws,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
		logger:      logger.With(slog.String("conn_id", string(id))),
	}
}

func (c *Client) ID() ConnID {
	return c.id
}

// Send queues event for delivery. A full queue drops the event; the peer
// recovers with a sync-request.
func (c *Client) Send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		c.logger.Warn("ws message dropped - client buffer full", slog.String("event", event.Name))
		return ErrSendQueueFull
	}
}

// Close stops both pumps. The send channel is left open so late
// broadcasts fail with ErrConnClosed instead of panicking.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Serve runs the connection until the peer goes away or ctx ends, feeding
// every inbound frame to handler and running its disconnect path on exit
func (c *Client) Serve(ctx context.Context, handler *Handler) {
	c.logger.Info("ws client connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump()
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	c.readPump(ctx, handler)

	handler.Close()
	c.Close()
	wg.Wait()
	_ = c.ws.Close()

	c.logger.Info("ws client disconnected", slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (c *Client) readPump(ctx context.Context, handler *Handler) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug("ws read failed", slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handler.HandleMessage(ctx, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				_ = c.ws.Close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				_ = c.ws.Close()
				return
			}

		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			// Unblock the read pump if it is still waiting on the peer
			_ = c.ws.Close()
			return
		}
	}
}

// flush writes whatever was queued before shutdown
func (c *Client) flush() {
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
