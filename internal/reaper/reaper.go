// Package reaper returns expired reservations' stock to the shelf. The sweep
// runs on a fixed interval for the lifetime of the process and stops when its
// context is cancelled.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
	"github.com/avolkov/online-store/internal/stock"
)

const DefaultInterval = 30 * time.Minute

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Reaper struct {
	DB       *gorm.DB
	Log      *slog.Logger
	Events   Publisher
	Interval time.Duration
}

func (r *Reaper) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Sweep(ctx); err != nil {
				r.Log.Error("reservation sweep failed", "error", err)
			}
		}
	}
}

// Sweep reclaims every reservation whose expiry has passed. Each line commits
// in its own transaction; the first failure aborts the rest of the pass and
// leaves the remainder for the next run. A second sweep with no new
// expirations is a no-op, since reclaimed lines no longer match the query.
func (r *Reaper) Sweep(ctx context.Context) error {
	var expired []models.CartProduct
	err := r.DB.WithContext(ctx).
		Where("reserved = ? AND reservation_expiry <= ?", true, time.Now()).
		Order("reservation_expiry ASC").
		Find(&expired).Error
	if err != nil {
		return err
	}

	for _, line := range expired {
		if err := r.reclaim(ctx, line); err != nil {
			r.Log.Error("reclaim failed",
				"cart_product_id", line.ID,
				"product_id", line.ProductID,
				"quantity", line.Quantity,
				"error", err,
			)
			return err
		}
		r.publishStockChanged(ctx, line)
	}

	if len(expired) > 0 {
		r.Log.Info("reservations reclaimed", "count", len(expired))
	}
	return nil
}

func (r *Reaper) reclaim(ctx context.Context, line models.CartProduct) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Flip the flag first: zero rows means the line was removed or
		// reclaimed since the scan, and its stock must not be returned twice.
		res := tx.Model(&models.CartProduct{}).
			Where("id = ? AND reserved = ?", line.ID, true).
			Update("reserved", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return stock.Release(tx, line.ProductID, line.Quantity)
	})
}

func (r *Reaper) publishStockChanged(ctx context.Context, line models.CartProduct) {
	if r.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	event := map[string]any{
		"type":       "stock_changed",
		"product_id": line.ProductID,
	}
	if err := r.Events.PublishEvent(pubCtx, "product_events", line.ProductID.String(), event); err != nil {
		r.Log.Error("kafka publish failed", "topic", "product_events", "error", err)
	}
}
