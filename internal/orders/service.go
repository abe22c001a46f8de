package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/models"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid status")
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	DB     *gorm.DB
	Events Publisher
}

func (s *Service) ListUserOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("date_ordered DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Order("date_ordered DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &order, nil
}

// ChangeStatus moves an order to the given status. The history records every
// prior status in order, never repeating the value it just left behind.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	var order models.Order
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %s: %w", id, ErrNotFound)
			}
			return err
		}
		if order.Status == status {
			return nil
		}
		changed = true

		history := order.StatusHistory
		if n := len(history); n == 0 || history[n-1] != order.Status {
			history = append(history, order.Status)
		}

		order.Status = status
		order.StatusHistory = history
		return tx.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
			"status":         order.Status,
			"status_history": order.StatusHistory,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publish(ctx, map[string]any{
			"type":     "order_status_changed",
			"order_id": order.ID,
			"status":   order.Status,
		})
	}
	return &order, nil
}

// Delete removes an order and its items.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *Service) publish(ctx context.Context, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	key := fmt.Sprint(event["order_id"])
	if err := s.Events.PublishEvent(pubCtx, "order_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "order_events", "error", err)
	}
}
