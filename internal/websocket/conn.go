package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marche241/storefront-gateway/pkg/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// subscription messages are tiny
	maxMessageSize = 4 * 1024
)

// Conn wraps a gorilla connection
type Conn struct {
	*websocket.Conn
}

// ReadPump reads subscription messages until the peer goes away
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error", err, map[string]interface{}{
					"visitor_id": c.VisitorID,
				})
			}
			break
		}

		c.Hub.HandleClientMessage(c, message)
	}
}

// WritePump pushes queued events and keeps the connection alive. Events
// that piled up while a write was in flight are collapsed so the tab only
// receives the newest cart of each shop.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case first, ok := <-c.Send:
			if !ok {
				c.closeConn()
				return
			}

			batch, open := drain(first, c.Send)
			for _, msg := range latestPerShop(batch) {
				c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					logger.Error("Failed to write cart event", err, map[string]interface{}{
						"visitor_id": c.VisitorID,
					})
					return
				}
			}
			if !open {
				c.closeConn()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeConn() {
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// drain takes first plus whatever is already queued. open is false when the
// hub closed the channel meanwhile.
func drain(first []byte, send <-chan []byte) (batch [][]byte, open bool) {
	batch = [][]byte{first}
	for n := len(send); n > 0; n-- {
		msg, ok := <-send
		if !ok {
			return batch, false
		}
		batch = append(batch, msg)
	}
	return batch, true
}

// latestPerShop keeps the last event of each shop, in the order those last
// events were queued. Undecodable messages are passed through.
func latestPerShop(batch [][]byte) [][]byte {
	if len(batch) < 2 {
		return batch
	}

	last := make(map[uint]int, len(batch))
	shops := make([]int, len(batch))
	for i, msg := range batch {
		var head struct {
			ShopID uint `json:"boutique_id"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			shops[i] = -1
			continue
		}
		shops[i] = int(head.ShopID)
		last[head.ShopID] = i
	}

	out := make([][]byte, 0, len(last))
	for i, msg := range batch {
		if shops[i] < 0 || last[uint(shops[i])] == i {
			out = append(out, msg)
		}
	}
	return out
}
