package repositories

import (
	"context"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository is the cart store: reads and writes carts and their lines,
// and provides the row locks checkout takes on a user's cart.
type CartRepository struct {
	db *orm.Query
}

func NewCartRepository(db *orm.Query) *CartRepository {
	return &CartRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *CartRepository) WithTx(tx *orm.Query) *CartRepository {
	return &CartRepository{db: tx}
}

// Create inserts a new cart for a user. Called from the same transaction
// that inserts the user.
func (r *CartRepository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart)
}

// ForUser returns the user's cart (without items).
func (r *CartRepository) ForUser(ctx context.Context, userID uint) (models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Model(&models.Cart{}).Where("user_id = ?", userID).First(&cart)
	return cart, err
}

// Items returns the cart's lines with their products, by product id.
func (r *CartRepository) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("product_id").
		Get(&items)
	return items, err
}

// LineQuantity is the quantity of productID in the cart, 0 when absent.
func (r *CartRepository) LineQuantity(ctx context.Context, cartID string, productID uint) (int64, error) {
	var qty []int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Select("quantity").
		Get(&qty)
	if err != nil || len(qty) == 0 {
		return 0, err
	}
	return qty[0], nil
}

// AddItem adds qty of a product to the cart in one atomic upsert: a new
// line is inserted, or the existing line's quantity grows by qty. Two
// concurrent adds of the same product therefore never create two lines.
func (r *CartRepository) AddItem(ctx context.Context, cartID string, productID uint, qty int64) (models.CartItem, error) {
	now := time.Now()
	item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty, CreatedAt: now, UpdatedAt: now}

	err := r.db.WithContext(ctx).OnConflict(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", qty),
			"updated_at": now,
		}),
	}).Create(&item)
	if err != nil {
		return models.CartItem{}, err
	}

	// The upsert may have updated an existing row, so item's ID and quantity
	// are not reliable; read the line back.
	var saved models.CartItem
	err = r.db.WithContext(ctx).Model(&models.CartItem{}).
		Preload("Product").
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&saved)
	return saved, err
}

// RemoveItem deletes the cart's line for productID. removed is false when
// there was no such line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID string, productID uint) (bool, error) {
	n, err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return n > 0, err
}

// LockItemsForUser returns the user's cart lines ordered by product id and
// holds an exclusive lock on each of them until the surrounding transaction
// ends. Must be called on a transaction-bound repository.
func (r *CartRepository) LockItemsForUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Select("cart_items.*").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.product_id").
		ForUpdate().
		Get(&items)
	return items, err
}

// Clear deletes every line of the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID uint) error {
	_, err := r.db.WithContext(ctx).
		Where("cart_id IN (?)", r.db.Gorm().Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{})
	return err
}
