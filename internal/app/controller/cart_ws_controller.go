package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/marche241/storefront-gateway/internal/app/service"
	apperrors "github.com/marche241/storefront-gateway/internal/errors"
	"github.com/marche241/storefront-gateway/internal/middleware"
	ws "github.com/marche241/storefront-gateway/internal/websocket"
)

type CartSocketController struct {
	hub      *ws.Hub
	carts    service.CartService
	upgrader websocket.Upgrader
}

// NewCartSocketController accepts upgrades only from allowedOrigins
func NewCartSocketController(hub *ws.Hub, carts service.CartService, allowedOrigins []string) *CartSocketController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &CartSocketController{
		hub:   hub,
		carts: carts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

// Connect opens the live cart feed of the visitor. ?boutique_id= subscribes
// the connection to one shop right away; 0 follows every shop.
// GET /api/v1/ws/panier
func (ctrl *CartSocketController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	visitor, ok := requireVisitor(c)
	if !ok {
		return
	}

	var initial *uint
	if raw := c.Query("boutique_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Identifiant de boutique invalide")
			return
		}
		shopID := uint(id)
		initial = &shopID
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, visitor)
	if initial != nil {
		ctrl.hub.HandleClientMessage(client, subscribeMessage(*initial))
		// replay the last snapshot the gateway holds for this shop
		if snap, ok := ctrl.carts.Cart(visitor).Current(*initial); ok {
			client.PushCart(snap)
		}
	}
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("Cart feed connected", map[string]interface{}{
		"visitor_id": visitor,
	})
}

func subscribeMessage(shopID uint) []byte {
	return []byte(`{"type":"` + ws.TypeSubscribe + `","boutique_id":` + strconv.FormatUint(uint64(shopID), 10) + `}`)
}
