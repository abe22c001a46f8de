package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxCountInStock caps a product's shelf quantity.
const MaxCountInStock = 255

type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                                        json:"id"`
	Name         string    `gorm:"not null"                                                    json:"name"`
	Description  string    `json:"description"`
	Price        float64   `gorm:"not null"                                                    json:"price"`
	Image        string    `json:"image"`
	Images       []string  `gorm:"serializer:json"                                             json:"images"`
	Sizes        []string  `gorm:"serializer:json"                                             json:"sizes"`
	Colours      []string  `gorm:"serializer:json"                                             json:"colours"`
	CountInStock int       `gorm:"not null;check:count_in_stock >= 0 AND count_in_stock <= 255" json:"count_in_stock"`
	DateAdded    time.Time `gorm:"autoCreateTime"                                              json:"date_added"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name              string    `gorm:"not null"              json:"name"`
	Email             string    `gorm:"uniqueIndex;not null"  json:"email"`
	Phone             string    `json:"phone"`
	PaymentCustomerID string    `json:"payment_customer_id,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CartProduct is a cart line holding a stock reservation. While Reserved is
// true its quantity has already been taken off the product's shelf; an
// unreserved line is still visible in the cart but holds no stock.
// ProductName, ProductImage and ProductPrice are snapshots taken when the
// line was created and do not track the live product.
type CartProduct struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"            json:"id"`
	UserID            uuid.UUID `gorm:"index;not null"                  json:"user_id"`
	ProductID         uuid.UUID `gorm:"index;not null"                  json:"product_id"`
	Quantity          int       `gorm:"not null;check:quantity >= 1"    json:"quantity"`
	SelectedSize      string    `json:"selected_size,omitempty"`
	SelectedColour    string    `json:"selected_colour,omitempty"`
	ProductName       string    `gorm:"not null"                        json:"product_name"`
	ProductImage      string    `json:"product_image"`
	ProductPrice      float64   `gorm:"not null"                        json:"product_price"`
	Reserved          bool      `gorm:"not null"                        json:"reserved"`
	ReservationExpiry time.Time `gorm:"index"                           json:"reservation_expiry"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (cp *CartProduct) BeforeCreate(tx *gorm.DB) error {
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	return nil
}

// WishlistItem is a saved product on a user's wishlist. Like a cart snapshot
// it freezes name, image and price at save time; unlike a cart line it holds
// no stock and never expires.
type WishlistItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                          json:"id"`
	UserID       uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID    uuid.UUID `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	ProductName  string    `gorm:"not null"                                      json:"product_name"`
	ProductImage string    `json:"product_image"`
	ProductPrice float64   `gorm:"not null"                                      json:"product_price"`
	CreatedAt    time.Time `json:"created_at"`
}

func (w *WishlistItem) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

type Order struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey"                 json:"id"`
	UserID          uuid.UUID     `gorm:"index;not null"                       json:"user_id"`
	Items           []OrderItem   `gorm:"constraint:OnDelete:CASCADE"          json:"order_items"`
	ShippingAddress string        `gorm:"not null"                             json:"shipping_address"`
	City            string        `json:"city"`
	PostalCode      string        `json:"postal_code"`
	Country         string        `json:"country"`
	Phone           string        `json:"phone"`
	PaymentID       string        `gorm:"uniqueIndex;not null"                 json:"payment_id"`
	Status          OrderStatus   `gorm:"not null"                             json:"status"`
	StatusHistory   []OrderStatus `gorm:"serializer:json"                      json:"status_history"`
	TotalPrice      float64       `gorm:"not null"                             json:"total_price"`
	DateOrdered     time.Time     `json:"date_ordered"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a frozen snapshot of a purchased line.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	OrderID        uuid.UUID `gorm:"index;not null"                json:"order_id"`
	ProductID      uuid.UUID `gorm:"not null"                      json:"product_id"`
	ProductName    string    `gorm:"not null"                      json:"product_name"`
	ProductImage   string    `json:"product_image"`
	ProductPrice   float64   `gorm:"not null"                      json:"product_price"`
	Quantity       int       `gorm:"not null;check:quantity >= 1"  json:"quantity"`
	SelectedSize   string    `json:"selected_size,omitempty"`
	SelectedColour string    `json:"selected_colour,omitempty"`
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}
