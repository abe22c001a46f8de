package checkout

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"github.com/avolkov/online-store/internal/logging"
)

// Handle consumes payment confirmations from the message bus. A nil return
// commits the offset; only storage failures are left uncommitted so the
// broker redelivers them.
func (f *Finalizer) Handle(ctx context.Context, m kafka.Message) error {
	l := logging.FromContext(ctx).With("topic", m.Topic, "offset", m.Offset)

	var ev PaymentConfirmed
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		l.Error("malformed payment event dropped", "error", err)
		return nil
	}

	order, err := f.Finalize(ctx, ev)
	switch {
	case err == nil:
		l.Info("order finalized", "order_id", order.ID, "payment_id", ev.PaymentID)
		return nil
	case errors.Is(err, ErrDuplicate):
		l.Info("duplicate payment event ignored", "payment_id", ev.PaymentID)
		return nil
	case errors.Is(err, ErrValidation):
		l.Error("invalid payment event dropped", "payment_id", ev.PaymentID, "error", err)
		return nil
	case errors.Is(err, ErrUserNotFound):
		// Redelivery cannot fix an unknown user; log and drop.
		l.Error("payment event for unknown user dropped", "payment_id", ev.PaymentID, "error", err)
		return nil
	default:
		return err
	}
}
