package websocket

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedHandler upgrades subscribers onto an item's live bid feed. The feed is
// read-only: bids are placed over HTTP and fan out here via pub/sub.
type FeedHandler struct {
	items       domain.ItemRepository
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewFeedHandler(items domain.ItemRepository, connManager domain.ConnectionManager, log logger.Logger) *FeedHandler {
	return &FeedHandler{
		items:       items,
		connManager: connManager,
		log:         log,
	}
}

func (h *FeedHandler) HandleConnection(c echo.Context) error {
	itemID := c.Param("id")

	if _, err := h.items.GetItem(c.Request().Context(), itemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Auction item not found"})
		}
		h.log.Error("Failed to fetch item for feed", "item_id", itemID, "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Store unavailable"})
	}

	userID := c.QueryParam("user_id")
	if userID == "" {
		userID = utils.GenerateID("viewer")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade feed connection", "error", err)
		return nil
	}

	wsConn := NewConnection(conn, userID, itemID, h.log)
	if err := h.connManager.RegisterConnection(userID, itemID, wsConn); err != nil {
		h.log.Error("Failed to register feed connection", "error", err)
		conn.Close()
		return nil
	}

	go h.readLoop(wsConn, userID, itemID)
	return nil
}

// readLoop drains client frames so pings and close frames are handled; the
// feed carries no client commands.
func (h *FeedHandler) readLoop(conn *Connection, userID, itemID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, itemID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}
