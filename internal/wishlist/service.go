// Package wishlist stores products a user saved for later. Entries never
// touch the stock ledger; availability is only reported when the list is
// read.
package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

type Service struct {
	DB *gorm.DB
}

// Item is a wishlist entry joined against the live product. A vanished
// product keeps its snapshot; an existing one refreshes it and reports
// whether any units are on the shelf at all.
type Item struct {
	models.WishlistItem
	ProductExists     bool `json:"product_exists"`
	ProductOutOfStock bool `json:"product_out_of_stock"`
}

// Add saves a product on the user's wishlist. Saving the same product twice
// returns ErrConflict; the unique (user, product) index backs the pre-check
// against concurrent saves.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistItem, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("product_id required: %w", ErrValidation)
	}

	var item models.WishlistItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %s: %w", productID, ErrNotFound)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.WishlistItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("product %s already on wishlist: %w", productID, ErrConflict)
		}

		item = models.WishlistItem{
			UserID:       userID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			ProductPrice: product.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("product %s already on wishlist: %w", productID, ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns the user's wishlist joined with the live catalog. Out of
// stock here means the shelf is empty, not short of some quantity: wishlist
// entries have no quantity.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	db := s.DB.WithContext(ctx)
	if err := userExists(db, userID); err != nil {
		return nil, err
	}

	var entries []models.WishlistItem
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		item := Item{WishlistItem: entry}

		var product models.Product
		err := db.First(&product, "id = ?", entry.ProductID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return nil, err
		default:
			item.ProductExists = true
			item.ProductName = product.Name
			item.ProductImage = product.Image
			item.ProductPrice = product.Price
			item.ProductOutOfStock = product.CountInStock < 1
		}
		items = append(items, item)
	}
	return items, nil
}

// Remove takes a product off the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	db := s.DB.WithContext(ctx)
	if err := userExists(db, userID); err != nil {
		return err
	}

	res := db.Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s not on wishlist: %w", productID, ErrNotFound)
	}
	return nil
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
