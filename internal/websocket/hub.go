package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/marche241/storefront-gateway/pkg/cart"
	"github.com/marche241/storefront-gateway/pkg/logger"
)

const (
	// per client, per second
	maxMessagesPerSecond = 10

	// AllShops subscribes a client to the carts of every shop
	AllShops uint = 0
)

// Message types exchanged with the storefront
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeCart        = "panier"
)

// ClientMessage is what the storefront sends
type ClientMessage struct {
	Type   string `json:"type"`
	ShopID uint   `json:"boutique_id"`
}

// CartEvent is pushed whenever the visitor's cart changes
type CartEvent struct {
	Type   string         `json:"type"`
	ShopID uint           `json:"boutique_id"`
	Panier *cart.Snapshot `json:"panier"`
}

// Client is one open browser tab of a visitor
type Client struct {
	Hub       *Hub
	Conn      *Conn
	VisitorID string
	Send      chan []byte

	mu    sync.RWMutex
	shops map[uint]bool

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, visitorID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		VisitorID: visitorID,
		Send:      make(chan []byte, 32),
		shops:     make(map[uint]bool),
	}
}

// Subscribed reports whether the client follows the cart of shopID
func (c *Client) Subscribed(shopID uint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shops[AllShops] || c.shops[shopID]
}

// PushCart queues snap on this client only. It reports false when the
// event could not be queued.
func (c *Client) PushCart(snap *cart.Snapshot) bool {
	data, err := json.Marshal(CartEvent{Type: TypeCart, ShopID: snap.ShopID, Panier: snap})
	if err != nil {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) subscribe(shopID uint) {
	c.mu.Lock()
	c.shops[shopID] = true
	c.mu.Unlock()
}

func (c *Client) unsubscribe(shopID uint) {
	c.mu.Lock()
	delete(c.shops, shopID)
	c.mu.Unlock()
}

// Hub tracks the open connections of every visitor and fans cart snapshots
// out to them
type Hub struct {
	// visitor id -> open tabs
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *visitorMessage

	mu sync.RWMutex
}

type visitorMessage struct {
	visitorID string
	shopID    uint
	data      []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *visitorMessage, 1024),
	}
}

// Run serves the hub until ctx is done, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.VisitorID] = append(h.clients[client.VisitorID], client)
			tabs := len(h.clients[client.VisitorID])
			h.mu.Unlock()
			logger.Debug("WebSocket client registered", map[string]interface{}{
				"visitor_id": client.VisitorID,
				"tabs":       tabs,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.visitorID] {
				if !client.Subscribed(message.shopID) {
					continue
				}
				select {
				case client.Send <- message.data:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"visitor_id": message.visitorID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.VisitorID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.VisitorID)
	} else {
		h.clients[client.VisitorID] = kept
	}
	close(client.Send)

	logger.Debug("WebSocket client unregistered", map[string]interface{}{
		"visitor_id":     client.VisitorID,
		"remaining_tabs": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for visitor, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, visitor)
	}
}

// PublishCart queues snap for the visitor's tabs following its shop. It never
// blocks; when the queue is full the event is dropped and the storefront
// catches up on its next read.
func (h *Hub) PublishCart(visitorID string, snap *cart.Snapshot) {
	if snap == nil || !h.IsOnline(visitorID) {
		return
	}
	data, err := json.Marshal(CartEvent{Type: TypeCart, ShopID: snap.ShopID, Panier: snap})
	if err != nil {
		logger.Error("Failed to marshal cart event", err, nil)
		return
	}

	select {
	case h.broadcast <- &visitorMessage{visitorID: visitorID, shopID: snap.ShopID, data: data}:
	default:
		logger.Warn("Broadcast channel full, cart event dropped", map[string]interface{}{
			"visitor_id": visitorID,
			"shop_id":    snap.ShopID,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsOnline reports whether the visitor has at least one open tab
func (h *Hub) IsOnline(visitorID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[visitorID]
	return ok
}

// HandleClientMessage applies a subscription change sent by the storefront
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"visitor_id": client.VisitorID,
			"count":      count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"visitor_id": client.VisitorID,
			"error":      err.Error(),
		})
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		client.subscribe(msg.ShopID)
	case TypeUnsubscribe:
		client.unsubscribe(msg.ShopID)
	default:
		logger.Debug("Ignoring client message", map[string]interface{}{
			"visitor_id": client.VisitorID,
			"type":       msg.Type,
		})
	}
}
