package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"auction-house/internal/api/middleware"
	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"
)

type ItemHandler struct {
	engine *services.AuctionEngine
	log    logger.Logger
}

type CreateItemRequest struct {
	ItemName    string    `json:"item_name"`
	Description string    `json:"description"`
	StartingBid float64   `json:"starting_bid"`
	ClosingTime time.Time `json:"closing_time"`
}

type PlaceBidRequest struct {
	Bid float64 `json:"bid"`
}

func NewItemHandler(engine *services.AuctionEngine, log logger.Logger) *ItemHandler {
	return &ItemHandler{
		engine: engine,
		log:    log,
	}
}

func (h *ItemHandler) CreateItem(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	}

	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	item, err := h.engine.CreateItem(c.Request().Context(),
		req.ItemName, req.Description, req.StartingBid, req.ClosingTime, identity)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": validationErr.Error()})
		case errors.Is(err, domain.ErrNotAuthorized):
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Access denied"})
		default:
			h.log.Error("Failed to create item", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		}
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Auction item created",
		"item":    item,
	})
}

func (h *ItemHandler) ListItems(c echo.Context) error {
	items, err := h.engine.ListItems(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list items", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Store unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *ItemHandler) GetItem(c echo.Context) error {
	item, err := h.engine.GetItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.itemError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"item": item})
}

func (h *ItemHandler) PlaceBid(c echo.Context) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	}

	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	result, err := h.engine.PlaceBid(c.Request().Context(), c.Param("id"), req.Bid, identity)
	if err != nil {
		return h.itemError(c, err)
	}

	switch result.Outcome {
	case domain.OutcomeBidAccepted:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "Bid successful",
			"item":    result.Item,
		})
	case domain.OutcomeAuctionClosed:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message": "Auction closed",
			"winner":  result.Winner,
		})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Bid too low"})
	}
}

func (h *ItemHandler) GetBidHistory(c echo.Context) error {
	history, err := h.engine.GetBidHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.itemError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"bid_history": history})
}

func (h *ItemHandler) itemError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Auction item not found"})
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrConflictRetryExhausted):
		h.log.Error("Retryable failure", "path", c.Path(), "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Temporarily unavailable, retry"})
	default:
		h.log.Error("Request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
}
