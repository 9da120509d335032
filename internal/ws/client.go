package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// writeTimeout bounds a single outbound frame so one slow reader never
// stalls a room broadcast.
const writeTimeout = 5 * time.Second

// Client is one live websocket connection. The ID is freshly generated
// per connection and is the session-facing identity; the stable
// identity is the player name bound at join time.
type Client struct {
	ID   string
	conn *websocket.Conn

	// writeMu serializes frames; broadcasts and acks come from
	// different goroutines.
	writeMu sync.Mutex

	mu         sync.Mutex
	playerName string
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// PlayerName returns the name bound to this connection, if any.
func (c *Client) PlayerName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerName
}

func (c *Client) bindName(name string) {
	c.mu.Lock()
	c.playerName = name
	c.mu.Unlock()
}

// send writes one JSON frame. Errors are swallowed: a failed write
// surfaces as a read-loop error on the same connection, which runs the
// normal disconnect path.
func (c *Client) send(v interface{}) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = wsjson.Write(ctx, c.conn, v)
}

func (c *Client) sendEvent(event string, data interface{}) {
	c.send(Event{Type: event, Data: data})
}

func (c *Client) close(code websocket.StatusCode, reason string) {
	_ = c.conn.Close(code, reason)
}
