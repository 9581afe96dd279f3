// Package events names the domain events services fire after commit and the
// payloads listeners receive.
package events

const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
)

// OrderPlacedPayload is fired once a checkout has committed.
type OrderPlacedPayload struct {
	OrderID    string `json:"order_id"`
	UserID     uint   `json:"user_id"`
	Total      int64  `json:"total"`
	ProductIDs []uint `json:"product_ids"`
}

// OrderStatusChangedPayload is fired after an admin advanced an order.
type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	UserID  uint   `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}
