package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart belongs to exactly one user.
type Cart struct {
	ID        string     `gorm:"type:varchar(36);primaryKey"   json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"          json:"user_id"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE"   json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CartItem is one product line. (cart_id, product_id) is unique, so adding a
// product that is already in the cart grows this row instead of adding one.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                                     json:"id"`
	CartID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product;index"         json:"product_id"`
	Product   Product   `gorm:"constraint:OnDelete:CASCADE"                                    json:"product"`
	Quantity  int64     `gorm:"not null;default:1;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineTotal uses the product's current price; Product must be loaded.
func (i CartItem) LineTotal() int64 {
	return i.Product.Price * i.Quantity
}
