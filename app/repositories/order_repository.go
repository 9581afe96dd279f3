package repositories

import (
	"context"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

type OrderRepository struct {
	db *orm.Query
}

func NewOrderRepository(db *orm.Query) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *OrderRepository) WithTx(tx *orm.Query) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts the order and its items.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order)
}

// ForUser pages through a user's orders, newest first, items included.
func (r *OrderRepository) ForUser(ctx context.Context, userID uint, page, limit int) ([]models.Order, orm.Pagination, error) {
	var orders []models.Order
	p, err := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC, id").
		GetWithPagination(&orders, page, limit)
	return orders, p, err
}

// Find loads one order with its items.
func (r *OrderRepository) Find(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items").Where("id = ?", id).First(&order)
	return order, err
}

// AdvanceStatus moves the order from one status to the next, but only if it
// is still in from. It reports false when another request got there first.
func (r *OrderRepository) AdvanceStatus(ctx context.Context, id, from, to string) (bool, error) {
	n, err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	return n > 0, err
}

// Since returns every order created at or after t, oldest first, with items.
// Used by the xlsx export.
func (r *OrderRepository) Since(ctx context.Context, t time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Where("created_at >= ?", t).
		Order("created_at, id").
		Get(&orders)
	return orders, err
}
