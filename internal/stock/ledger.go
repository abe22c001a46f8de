// Package stock holds the ledger primitives: every change to a product's
// available quantity goes through a single conditional UPDATE so that two
// concurrent actors can never drive the count negative.
package stock

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
)

var (
	ErrInsufficient    = errors.New("insufficient stock")
	ErrProductNotFound = errors.New("product not found")
)

// Reserve takes qty units off the shelf, but only if at least required units
// are currently available. Both the check and the decrement happen in one
// statement; a zero row count means another actor won the race (or the
// product is gone) and nothing was changed.
func Reserve(tx *gorm.DB, productID uuid.UUID, qty, required int) error {
	if required < qty {
		required = qty
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND count_in_stock >= ?", productID, required).
		Update("count_in_stock", gorm.Expr("count_in_stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficient
	}
	return nil
}

// Release puts qty units back on the shelf unconditionally.
func Release(tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("count_in_stock", gorm.Expr("count_in_stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}
