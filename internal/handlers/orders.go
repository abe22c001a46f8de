package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/models"
	"github.com/avolkov/online-store/internal/orders"
	"github.com/avolkov/online-store/internal/util"
)

type OrdersHandler struct {
	Svc *orders.Service
}

func (h *OrdersHandler) GetUserOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.user.orders")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid user id"))
	}

	offset, limit := util.Calculate(intParam(c, "page"), intParam(c, "size"))
	list, err := h.Svc.ListUserOrders(ctx, userID, limit, offset)
	if err != nil {
		l.Error("list orders failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrdersHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list.orders")

	offset, limit := util.Calculate(intParam(c, "page"), intParam(c, "size"))
	list, err := h.Svc.ListOrders(ctx, limit, offset)
	if err != nil {
		l.Error("list orders failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
	return c.JSON(http.StatusOK, list)
}

func (h *OrdersHandler) Count(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.count.orders")

	count, err := h.Svc.Count(ctx)
	if err != nil {
		l.Error("count orders failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

func (h *OrdersHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.order")

	id, err := pathUUID(c, "orderId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid order id"))
	}

	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return orderError(c, l, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.change.order.status")

	id, err := pathUUID(c, "orderId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid order id"))
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid body"))
	}

	order, err := h.Svc.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		return orderError(c, l, err)
	}

	l.Info("order status changed", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrdersHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete.order")

	id, err := pathUUID(c, "orderId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid order id"))
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return orderError(c, l, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func orderError(c echo.Context, l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		l.Warn("order missing", "error", err)
		return c.JSON(http.StatusNotFound, errBody("not_found", err.Error()))
	case errors.Is(err, orders.ErrInvalidStatus):
		l.Warn("invalid status", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", err.Error()))
	default:
		l.Error("orders internal error", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
}

func intParam(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
