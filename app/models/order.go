package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderPending   = "pending"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
)

// NextStatus is the only status an order may move to from status.
func NextStatus(status string) (string, bool) {
	switch status {
	case OrderPending:
		return OrderShipped, true
	case OrderShipped:
		return OrderDelivered, true
	}
	return "", false
}

// Order is created once at checkout. TotalPrice is fixed at that moment;
// only Status changes afterwards.
type Order struct {
	ID         string      `gorm:"type:varchar(36);primaryKey"              json:"id"`
	UserID     uint        `gorm:"not null;index"                           json:"user_id"`
	User       *User       `gorm:"constraint:OnDelete:CASCADE"              json:"-"`
	TotalPrice int64       `gorm:"not null"                                 json:"total_price"`
	Status     string      `gorm:"size:20;not null;default:pending;index"   json:"status"`
	Items      []OrderItem `gorm:"constraint:OnDelete:CASCADE"              json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderItem snapshots a cart line at checkout. ProductName and UnitPrice are
// copies, so later catalog edits never change a placed order.
type OrderItem struct {
	ID          uint     `gorm:"primaryKey"                          json:"id"`
	OrderID     string   `gorm:"type:varchar(36);not null;index"     json:"order_id"`
	ProductID   *uint    `gorm:"index"                               json:"product_id"`
	Product     *Product `gorm:"constraint:OnDelete:SET NULL"        json:"-"`
	ProductName string   `gorm:"size:255;not null"                   json:"product_name"`
	UnitPrice   int64    `gorm:"not null"                            json:"unit_price"`
	Quantity    int64    `gorm:"not null"                            json:"quantity"`
	LineTotal   int64    `gorm:"not null"                            json:"line_total"`
}
