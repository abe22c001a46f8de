package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/wishlist"
)

type WishlistHandler struct {
	Svc *wishlist.Service
}

func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.wishlist")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	items, err := h.Svc.List(ctx, userID)
	if err != nil {
		return wishlistError(c, l, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WishlistHandler) AddToWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.wishlist")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	var req struct {
		ProductID uuid.UUID `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid body"))
	}

	item, err := h.Svc.Add(ctx, userID, req.ProductID)
	if err != nil {
		return wishlistError(c, l, err)
	}

	l.Info("wishlist item added", "product_id", item.ProductID)
	return c.JSON(http.StatusCreated, item)
}

func (h *WishlistHandler) RemoveFromWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.wishlist")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}
	productID, err := pathUUID(c, "productId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid product id"))
	}

	if err := h.Svc.Remove(ctx, userID, productID); err != nil {
		return wishlistError(c, l, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func wishlistError(c echo.Context, l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, wishlist.ErrValidation):
		l.Warn("wishlist request rejected", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", err.Error()))
	case errors.Is(err, wishlist.ErrNotFound):
		l.Warn("wishlist target missing", "error", err)
		return c.JSON(http.StatusNotFound, errBody("not_found", err.Error()))
	case errors.Is(err, wishlist.ErrConflict):
		l.Warn("wishlist duplicate", "error", err)
		return c.JSON(http.StatusConflict, errBody("conflict", err.Error()))
	default:
		l.Error("wishlist internal error", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
}
