package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/cart"
	"github.com/avolkov/online-store/internal/logging"
)

type CartHandler struct {
	Svc *cart.Service
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	lines, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return cartError(c, l, err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHandler) GetCount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart.count")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	count, err := h.Svc.Count(ctx, userID)
	if err != nil {
		return cartError(c, l, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

func (h *CartHandler) GetLine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart.line")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}
	lineID, err := pathUUID(c, "cartProductId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid cart product id"))
	}

	line, err := h.Svc.GetLine(ctx, userID, lineID)
	if err != nil {
		return cartError(c, l, err)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	var req cart.AddRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid body"))
	}

	line, err := h.Svc.AddToCart(ctx, userID, req)
	if err != nil {
		return cartError(c, l, err)
	}

	l.Info("cart line added", "cart_product_id", line.ID, "quantity", line.Quantity)
	return c.JSON(http.StatusCreated, line)
}

func (h *CartHandler) ModifyQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "modify.cart.quantity")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}
	lineID, err := pathUUID(c, "cartProductId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid cart product id"))
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid body"))
	}

	line, err := h.Svc.ModifyQuantity(ctx, userID, lineID, req.Quantity)
	if err != nil {
		return cartError(c, l, err)
	}
	return c.JSON(http.StatusOK, line)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.cart")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}
	lineID, err := pathUUID(c, "cartProductId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid cart product id"))
	}

	if err := h.Svc.RemoveFromCart(ctx, userID, lineID); err != nil {
		return cartError(c, l, err)
	}

	l.Info("cart line removed", "cart_product_id", lineID)
	return c.NoContent(http.StatusNoContent)
}

// cartError maps service sentinels to responses. Stock failures are reported
// with their own type so a client can tell "try fewer" from "gone".
func cartError(c echo.Context, l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, cart.ErrValidation):
		l.Warn("cart request rejected", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", err.Error()))
	case errors.Is(err, cart.ErrNotFound):
		l.Warn("cart target missing", "error", err)
		return c.JSON(http.StatusNotFound, errBody("not_found", err.Error()))
	case errors.Is(err, cart.ErrOutOfStock):
		l.Warn("out of stock", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("out_of_stock", err.Error()))
	case errors.Is(err, cart.ErrInsufficientStock):
		l.Warn("insufficient stock", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("insufficient_stock", err.Error()))
	case errors.Is(err, cart.ErrConflict):
		l.Warn("stock conflict", "error", err)
		return c.JSON(http.StatusConflict, errBody("conflict", err.Error()))
	default:
		l.Error("cart internal error", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func errBody(kind, message string) echo.Map {
	return echo.Map{"type": kind, "message": message}
}
