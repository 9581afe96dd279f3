package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/collection"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// MaxLineQuantity caps one cart line. With MaxUnitPrice it keeps line and
// order totals far from int64 overflow.
const MaxLineQuantity = 10_000

// CartView is a cart with its lines and the total at current prices.
type CartView struct {
	ID    string            `json:"id"`
	Items []models.CartItem `json:"items"`
	Total int64             `json:"total"`
}

type CartService struct {
	carts    *repositories.CartRepository
	products *repositories.ProductRepository
}

func NewCartService(db *orm.Query) *CartService {
	return &CartService{
		carts:    repositories.NewCartRepository(db),
		products: repositories.NewProductRepository(db),
	}
}

func (s *CartService) cartFor(ctx context.Context, userID uint) (models.Cart, error) {
	cart, err := s.carts.ForUser(ctx, userID)
	if orm.IsNotFound(err) {
		return models.Cart{}, &NotFoundError{Resource: "cart", ID: userID}
	}
	if err != nil {
		return models.Cart{}, wrapDB("cart: load", err)
	}
	return cart, nil
}

// AddItem puts qty of a product in the user's cart, growing the existing
// line when the product is already there.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, qty int64) (models.CartItem, error) {
	if qty < 1 {
		return models.CartItem{}, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	if qty > MaxLineQuantity {
		return models.CartItem{}, &ValidationError{Field: "quantity", Message: fmt.Sprintf("may not be greater than %d", MaxLineQuantity)}
	}

	if _, err := s.products.Find(ctx, productID); err != nil {
		if orm.IsNotFound(err) {
			return models.CartItem{}, &NotFoundError{Resource: "product", ID: productID}
		}
		return models.CartItem{}, wrapDB("cart: load product", err)
	}

	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return models.CartItem{}, err
	}

	have, err := s.carts.LineQuantity(ctx, cart.ID, productID)
	if err != nil {
		return models.CartItem{}, wrapDB("cart: load line", err)
	}
	if have+qty > MaxLineQuantity {
		return models.CartItem{}, &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("cart would hold %d; the limit is %d", have+qty, MaxLineQuantity),
		}
	}

	item, err := s.carts.AddItem(ctx, cart.ID, productID, qty)
	if err != nil {
		return models.CartItem{}, wrapDB("cart: add item", err)
	}
	return item, nil
}

// RemoveItem drops the product's line from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) error {
	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		return err
	}

	removed, err := s.carts.RemoveItem(ctx, cart.ID, productID)
	if err != nil {
		return wrapDB("cart: remove item", err)
	}
	if !removed {
		return &NotFoundError{Resource: "cart item", ID: productID}
	}
	return nil
}

// Show returns the user's cart priced at current product prices. A user
// without a cart sees an empty one.
func (s *CartService) Show(ctx context.Context, userID uint) (CartView, error) {
	cart, err := s.cartFor(ctx, userID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) && nf.Resource == "cart" {
			return CartView{Items: []models.CartItem{}}, nil
		}
		return CartView{}, err
	}

	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return CartView{}, wrapDB("cart: load items", err)
	}

	view := CartView{ID: cart.ID, Items: items, Total: collection.Sum(items, models.CartItem.LineTotal)}
	if view.Items == nil {
		view.Items = []models.CartItem{}
	}
	return view, nil
}
