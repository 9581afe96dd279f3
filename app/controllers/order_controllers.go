package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
)

type statusInput struct {
	Status string `json:"status" validate:"required,in=shipped,delivered"`
}

type OrderController struct {
	checkout *services.CheckoutCoordinator
	orders   *services.OrderService
	hub      *ws.Hub
}

func NewOrderController(checkout *services.CheckoutCoordinator, orders *services.OrderService, hub *ws.Hub) *OrderController {
	return &OrderController{checkout: checkout, orders: orders, hub: hub}
}

// Store handles POST /api/orders: checks out the caller's cart.
func (ctl *OrderController) Store(c *ctx.Context) {
	order, err := ctl.checkout.PlaceOrder(c.Context(), c.MustUserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"orderId": order.ID})
}

func (ctl *OrderController) Index(c *ctx.Context) {
	p, limit := page(c)
	orders, meta, err := ctl.orders.List(c.Context(), c.MustUserID(), p, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(orders, meta)
}

func (ctl *OrderController) Show(c *ctx.Context) {
	viewer := services.Viewer{UserID: c.MustUserID(), Admin: c.IsAdmin()}
	order, err := ctl.orders.Show(c.Context(), viewer, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status (admin).
func (ctl *OrderController) UpdateStatus(c *ctx.Context) {
	var in statusInput
	if !c.BindJSON(&in) {
		return
	}
	order, err := ctl.orders.AdvanceStatus(c.Context(), c.Param("id"), in.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(order)
}

// Feed upgrades GET /api/orders/ws to a websocket that receives the
// caller's order status changes.
func (ctl *OrderController) Feed(c *ctx.Context) {
	ws.Upgrade(c.W, c.R, ctl.hub, c.MustUserID())
}
