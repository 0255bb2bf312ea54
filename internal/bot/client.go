package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20
)

var ErrClientClosed = errors.New("signaling client closed")

// Request is a client to server message.
type Request struct {
	Type   string          `json:"type"`
	Signal json.RawMessage `json:"signal,omitempty"`
	Room   string          `json:"room,omitempty"`
	Text   string          `json:"text,omitempty"`
}

// Message is any server to client event; unused fields stay zero.
type Message struct {
	Type              string          `json:"type"`
	ID                string          `json:"id,omitempty"`
	Room              string          `json:"room,omitempty"`
	IsInitiator       bool            `json:"isInitiator,omitempty"`
	Signal            json.RawMessage `json:"signal,omitempty"`
	From              string          `json:"from,omitempty"`
	MutedParticipants []string        `json:"mutedParticipants,omitempty"`
	Error             string          `json:"error,omitempty"`
	Text              string          `json:"text,omitempty"`
	Audio             []byte          `json:"audio,omitempty"`
	Message           string          `json:"message,omitempty"`
}

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn     *websocket.Conn
	incoming chan *Message
	outgoing chan Request
	done     chan struct{}
	once     sync.Once
}

func Dial(ctx context.Context, serverURL string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:     conn,
		incoming: make(chan *Message, 16),
		outgoing: make(chan Request, 64),
		done:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()

	log.Info().Str("module", "bot.client").Str("server", serverURL).Msg("connected")
	return c, nil
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		close(c.incoming)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			log.Debug().Err(err).Str("module", "bot.client").Msg("read stopped")
			return
		}
		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case req := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(req); err != nil {
				log.Error().Err(err).Str("module", "bot.client").Msg("write error")
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues req for the server. It is safe for concurrent use.
func (c *Client) Send(req Request) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.outgoing <- req:
		return nil
	case <-c.done:
		return ErrClientClosed
	}
}

// Incoming is closed when the connection drops.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}
