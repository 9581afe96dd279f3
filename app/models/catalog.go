package models

import "time"

// Category groups products. Deleting a category leaves its products
// uncategorised.
type Category struct {
	ID          uint      `gorm:"primaryKey"                                json:"id"`
	Name        string    `gorm:"size:120;uniqueIndex;not null"             json:"name"`
	Description string    `gorm:"size:255"                                  json:"description"`
	Products    []Product `gorm:"constraint:OnDelete:SET NULL"              json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a sellable item. Price is in the smallest currency unit.
// Stock never drops below zero: checkout decrements it with a guarded
// UPDATE and the table carries a CHECK constraint as a backstop.
type Product struct {
	ID          uint      `gorm:"primaryKey"                                        json:"id"`
	Name        string    `gorm:"size:255;not null;index"                           json:"name"`
	Description string    `gorm:"type:text"                                         json:"description"`
	Price       int64     `gorm:"not null;default:0;check:chk_products_price,price >= 0" json:"price"`
	Stock       int64     `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	CategoryID  *uint     `gorm:"index"                                             json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
