package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
)

type addToCartInput struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  *int64 `json:"quantity"  validate:"nullable,gte=1,lte=10000"`
}

type removeFromCartInput struct {
	ProductID uint `json:"productId" validate:"required"`
}

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

// Show handles GET /api/cart.
func (ctl *CartController) Show(c *ctx.Context) {
	view, err := ctl.carts.Show(c.Context(), c.MustUserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(view)
}

// Store handles POST /api/cart. Quantity defaults to 1.
func (ctl *CartController) Store(c *ctx.Context) {
	var in addToCartInput
	if !c.BindJSON(&in) {
		return
	}
	qty := int64(1)
	if in.Quantity != nil {
		qty = *in.Quantity
	}

	item, err := ctl.carts.AddItem(c.Context(), c.MustUserID(), in.ProductID, qty)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(item)
}

// Destroy handles DELETE /api/cart.
func (ctl *CartController) Destroy(c *ctx.Context) {
	var in removeFromCartInput
	if !c.BindJSON(&in) {
		return
	}
	if err := ctl.carts.RemoveItem(c.Context(), c.MustUserID(), in.ProductID); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}
