package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/logging"
	"github.com/avolkov/online-store/internal/models"
	"github.com/avolkov/online-store/internal/stock"
)

// ReservationTTL is how long a cart line holds its stock before the reaper
// may take it back.
const ReservationTTL = 30 * time.Minute

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
)

// Publisher is the slice of the kafka producer the cart needs.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Service struct {
	DB     *gorm.DB
	Events Publisher
}

type AddRequest struct {
	ProductID      uuid.UUID `json:"product_id"`
	Quantity       int       `json:"quantity"`
	SelectedSize   string    `json:"selected_size"`
	SelectedColour string    `json:"selected_colour"`
}

// Line is a cart line joined against the live product. The snapshot fields
// are refreshed for display; ProductOutOfStock is informational for lines
// that no longer hold a reservation.
type Line struct {
	models.CartProduct
	ProductExists     bool `json:"product_exists"`
	ProductOutOfStock bool `json:"product_out_of_stock"`
}

// AddToCart reserves stock for a new line, or adds one unit to an existing
// line with the same product and variant selection. The ledger decrement and
// the line mutation commit together or not at all.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, req AddRequest) (*models.CartProduct, error) {
	if req.ProductID == uuid.Nil {
		return nil, fmt.Errorf("product_id required: %w", ErrValidation)
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var line models.CartProduct
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
			}
			return err
		}

		var existing models.CartProduct
		err := tx.Where(
			"user_id = ? AND product_id = ? AND selected_size = ? AND selected_colour = ?",
			userID, req.ProductID, req.SelectedSize, req.SelectedColour,
		).First(&existing).Error

		switch {
		case err == nil:
			// Merging into an existing line always adds a single unit. A
			// reserved line must leave room for its whole claim plus one;
			// an unreserved line only needs the one unit it is taking now.
			required := 1
			if existing.Reserved {
				required = existing.Quantity + 1
			}
			if product.CountInStock < required {
				return fmt.Errorf("%s: %w", product.Name, ErrOutOfStock)
			}
			if err := stock.Reserve(tx, product.ID, 1, required); err != nil {
				if errors.Is(err, stock.ErrInsufficient) {
					return fmt.Errorf("%s: %w", product.Name, ErrOutOfStock)
				}
				return err
			}
			if err := tx.Model(&existing).Update("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
				return err
			}
			return tx.First(&line, "id = ?", existing.ID).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			if product.CountInStock < req.Quantity {
				return fmt.Errorf("%s: %w", product.Name, ErrOutOfStock)
			}
			line = models.CartProduct{
				UserID:            userID,
				ProductID:         product.ID,
				Quantity:          req.Quantity,
				SelectedSize:      req.SelectedSize,
				SelectedColour:    req.SelectedColour,
				ProductName:       product.Name,
				ProductImage:      product.Image,
				ProductPrice:      product.Price,
				Reserved:          true,
				ReservationExpiry: time.Now().Add(ReservationTTL),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			if err := stock.Reserve(tx, product.ID, req.Quantity, req.Quantity); err != nil {
				if errors.Is(err, stock.ErrInsufficient) {
					// Passed the availability check above but lost the
					// decrement race; the rollback undoes the line.
					return fmt.Errorf("%s: %w", product.Name, ErrConflict)
				}
				return err
			}
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "cart_events", userID.String(), map[string]any{
		"type":            "cart_line_added",
		"user_id":         userID,
		"cart_product_id": line.ID,
		"product_id":      line.ProductID,
		"quantity":        line.Quantity,
	})
	s.publishStockChanged(ctx, line.ProductID)
	return &line, nil
}

// ModifyQuantity sets a line's quantity, requiring it not to exceed the
// product's current shelf count. The ledger itself is untouched: quantity
// edits re-check absolute availability rather than adjusting the reservation.
func (s *Service) ModifyQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.CartProduct, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	db := s.DB.WithContext(ctx)
	if err := userExists(db, userID); err != nil {
		return nil, err
	}

	var line models.CartProduct
	if err := db.Where("id = ? AND user_id = ?", lineID, userID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart product %s: %w", lineID, ErrNotFound)
		}
		return nil, err
	}

	var product models.Product
	if err := db.First(&product, "id = ?", line.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrNotFound)
		}
		return nil, err
	}

	if quantity > product.CountInStock {
		return nil, fmt.Errorf("%s: requested %d, available %d: %w",
			product.Name, quantity, product.CountInStock, ErrInsufficientStock)
	}

	if err := db.Model(&line).Update("quantity", quantity).Error; err != nil {
		return nil, err
	}

	s.publish(ctx, "cart_events", userID.String(), map[string]any{
		"type":            "cart_quantity_changed",
		"user_id":         userID,
		"cart_product_id": line.ID,
		"quantity":        quantity,
	})
	return &line, nil
}

// RemoveFromCart deletes a line from the user's cart. A still-reserved line
// returns its quantity to the shelf first, in the same transaction; an
// unreserved line was already reclaimed and changes no stock.
func (s *Service) RemoveFromCart(ctx context.Context, userID, lineID uuid.UUID) error {
	var productID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}

		var line models.CartProduct
		if err := tx.Where("id = ? AND user_id = ?", lineID, userID).First(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("cart product %s: %w", lineID, ErrNotFound)
			}
			return err
		}

		if line.Reserved {
			if err := stock.Release(tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		productID = line.ProductID
		return tx.Delete(&line).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, "cart_events", userID.String(), map[string]any{
		"type":            "cart_line_removed",
		"user_id":         userID,
		"cart_product_id": lineID,
	})
	s.publishStockChanged(ctx, productID)
	return nil
}

// GetCart lists the user's lines joined with the live catalog. Reads are not
// transactional; a stale-but-consistent snapshot is fine for display. As in
// GetLine, the out-of-stock flag applies only to unreserved lines.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	db := s.DB.WithContext(ctx)
	if err := userExists(db, userID); err != nil {
		return nil, err
	}

	var items []models.CartProduct
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		line := Line{CartProduct: item}

		var product models.Product
		err := db.First(&product, "id = ?", item.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Keep the snapshot; the storefront shows the line as gone.
		case err != nil:
			return nil, err
		default:
			line.ProductExists = true
			line.ProductName = product.Name
			line.ProductImage = product.Image
			line.ProductPrice = product.Price
			line.ProductOutOfStock = !item.Reserved && product.CountInStock < item.Quantity
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// GetLine reads a single cart line with refreshed product details. The
// out-of-stock flag only applies to unreserved lines; a reserved line's
// stock was already carved out.
func (s *Service) GetLine(ctx context.Context, userID, lineID uuid.UUID) (*Line, error) {
	db := s.DB.WithContext(ctx)

	var item models.CartProduct
	if err := db.Where("id = ? AND user_id = ?", lineID, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cart product %s: %w", lineID, ErrNotFound)
		}
		return nil, err
	}

	line := Line{CartProduct: item}
	var product models.Product
	err := db.First(&product, "id = ?", item.ProductID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, err
	default:
		line.ProductExists = true
		line.ProductName = product.Name
		line.ProductImage = product.Image
		line.ProductPrice = product.Price
		line.ProductOutOfStock = !item.Reserved && product.CountInStock < item.Quantity
	}
	return &line, nil
}

func (s *Service) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	db := s.DB.WithContext(ctx)
	if err := userExists(db, userID); err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&models.CartProduct{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func userExists(db *gorm.DB, userID uuid.UUID) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, topic, key string, event map[string]any) {
	if s.Events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", topic, "error", err)
	}
}

func (s *Service) publishStockChanged(ctx context.Context, productID uuid.UUID) {
	s.publish(ctx, "product_events", productID.String(), map[string]any{
		"type":       "stock_changed",
		"product_id": productID,
	})
}
