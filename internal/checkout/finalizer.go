// Package checkout turns confirmed payments into permanent orders. Stock is
// not touched here: it was decremented when the lines were reserved, and the
// consumed reservations are detached so the reaper can never hand their
// quantity back.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/models"
	"github.com/avolkov/online-store/internal/redisx"
)

var (
	ErrValidation   = errors.New("validation")
	ErrDuplicate    = errors.New("duplicate payment event")
	ErrUserNotFound = errors.New("user not found")
)

// PaymentItem is one purchased line as reported by the payment provider.
// Quantities and prices here are authoritative.
type PaymentItem struct {
	CartProductID  uuid.UUID `json:"cart_product_id"`
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	ProductName    string    `json:"product_name"`
	ProductImage   string    `json:"product_image"`
	SelectedSize   string    `json:"selected_size,omitempty"`
	SelectedColour string    `json:"selected_colour,omitempty"`
}

type ShippingDetails struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// PaymentConfirmed is the trusted notification from the payment provider.
type PaymentConfirmed struct {
	PaymentID         string          `json:"payment_id"`
	UserID            uuid.UUID       `json:"user_id"`
	BillingCustomerID string          `json:"billing_customer_id"`
	Items             []PaymentItem   `json:"items"`
	Shipping          ShippingDetails `json:"shipping"`
	TotalPrice        float64         `json:"total_price"`
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Finalizer struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Events Publisher
}

// Finalize creates exactly one order for a confirmed payment. Redelivering
// the same payment id returns ErrDuplicate and changes nothing. The unique
// index on orders.payment_id is the arbiter; redis is only a read-side
// short-circuit, written after the transaction commits, so a payment is
// never marked processed before its order exists.
func (f *Finalizer) Finalize(ctx context.Context, ev PaymentConfirmed) (*models.Order, error) {
	if ev.PaymentID == "" {
		return nil, fmt.Errorf("payment_id required: %w", ErrValidation)
	}
	if len(ev.Items) == 0 {
		return nil, fmt.Errorf("items required: %w", ErrValidation)
	}

	dedupKey := fmt.Sprintf(redisx.KeyDedupPayment, ev.PaymentID)
	if f.Redis != nil {
		n, err := f.Redis.Exists(ctx, dedupKey).Result()
		if err != nil {
			logging.FromContext(ctx).Warn("dedup cache unavailable", "error", err)
		} else if n > 0 {
			return nil, fmt.Errorf("payment %s: %w", ev.PaymentID, ErrDuplicate)
		}
	}

	var order models.Order
	err := f.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Order{}).Where("payment_id = ?", ev.PaymentID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("payment %s: %w", ev.PaymentID, ErrDuplicate)
		}

		var user models.User
		if err := tx.First(&user, "id = ?", ev.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", ev.UserID, ErrUserNotFound)
			}
			return err
		}

		items := make([]models.OrderItem, 0, len(ev.Items))
		total := ev.TotalPrice
		for _, it := range ev.Items {
			items = append(items, models.OrderItem{
				ProductID:      it.ProductID,
				ProductName:    it.ProductName,
				ProductImage:   it.ProductImage,
				ProductPrice:   it.UnitPrice,
				Quantity:       it.Quantity,
				SelectedSize:   it.SelectedSize,
				SelectedColour: it.SelectedColour,
			})
			if ev.TotalPrice == 0 {
				total += it.UnitPrice * float64(it.Quantity)
			}
		}

		order = models.Order{
			UserID:          user.ID,
			Items:           items,
			ShippingAddress: ev.Shipping.Address,
			City:            ev.Shipping.City,
			PostalCode:      ev.Shipping.PostalCode,
			Country:         ev.Shipping.Country,
			Phone:           ev.Shipping.Phone,
			PaymentID:       ev.PaymentID,
			Status:          models.StatusPending,
			StatusHistory:   []models.OrderStatus{models.StatusPending},
			TotalPrice:      total,
			DateOrdered:     time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("payment %s: %w", ev.PaymentID, ErrDuplicate)
			}
			return err
		}

		// Detach the consumed reservations: their stock stays sold. Lines
		// already removed or expired are skipped; the event's quantities
		// were authoritative above.
		for _, it := range ev.Items {
			if it.CartProductID == uuid.Nil {
				continue
			}
			if err := tx.Where("id = ?", it.CartProductID).Delete(&models.CartProduct{}).Error; err != nil {
				return err
			}
		}

		if user.PaymentCustomerID == "" && ev.BillingCustomerID != "" {
			if err := tx.Model(&user).Update("payment_customer_id", ev.BillingCustomerID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if f.Redis != nil {
		// Only ever written once the order is durable.
		if err := f.Redis.Set(context.WithoutCancel(ctx), dedupKey, "1", redisx.TTLDedup).Err(); err != nil {
			logging.FromContext(ctx).Warn("dedup cache write failed", "error", err)
		}
	}

	f.publish(ctx, map[string]any{
		"type":       "order_created",
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"payment_id": order.PaymentID,
		"total":      order.TotalPrice,
	})
	return &order, nil
}

func (f *Finalizer) publish(ctx context.Context, event map[string]any) {
	if f.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	key := fmt.Sprint(event["order_id"])
	if err := f.Events.PublishEvent(pubCtx, "order_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "order_events", "error", err)
	}
}
