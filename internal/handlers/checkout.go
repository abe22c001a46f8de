package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/checkout"
	"github.com/avolkov/online-store/internal/logging"
)

type CheckoutHandler struct {
	Finalizer *checkout.Finalizer
}

// Webhook receives the payment provider's confirmed-payment notification.
// Anything other than a storage failure answers 2xx so the provider stops
// redelivering; duplicates are acknowledged without side effects.
func (h *CheckoutHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	var ev checkout.PaymentConfirmed
	if err := c.Bind(&ev); err != nil {
		l.Warn("webhook rejected", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", "invalid body"))
	}

	order, err := h.Finalizer.Finalize(ctx, ev)
	switch {
	case err == nil:
		l.Info("order finalized", "order_id", order.ID, "payment_id", ev.PaymentID)
		return c.JSON(http.StatusOK, echo.Map{"order_id": order.ID})
	case errors.Is(err, checkout.ErrDuplicate):
		l.Info("duplicate payment event ignored", "payment_id", ev.PaymentID)
		return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
	case errors.Is(err, checkout.ErrValidation):
		l.Warn("webhook rejected", "error", err)
		return c.JSON(http.StatusBadRequest, errBody("validation", err.Error()))
	case errors.Is(err, checkout.ErrUserNotFound):
		l.Error("payment event for unknown user dropped", "payment_id", ev.PaymentID, "error", err)
		return c.JSON(http.StatusOK, echo.Map{"dropped": true})
	default:
		l.Error("finalize failed", "payment_id", ev.PaymentID, "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("internal", "internal server error"))
	}
}
