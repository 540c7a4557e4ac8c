package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one websocket subscribed to a user's notification stream.
type Client struct {
	conn   *websocket.Conn
	send   chan *Event
	userID int64
}

func newClient(conn *websocket.Conn, userID int64) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan *Event, sendBuffer),
		userID: userID,
	}
}

// readPump discards client frames and keeps the read deadline fresh. The
// stream is server-to-client only.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn(logging.IO, logging.Push, "notification stream closed unexpectedly", map[logging.ExtraKey]any{
					logging.UserID:       c.userID,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}
	}
}

func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				h.logger.Warn(logging.IO, logging.Push, "failed to write notification", map[logging.ExtraKey]any{
					logging.UserID:       c.userID,
					logging.ErrorMessage: err.Error(),
				})
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
