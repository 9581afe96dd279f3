package services

import (
	"context"

	"github.com/shashiranjanraj/kashvi-shop/app/events"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// Viewer is who is asking for an order.
type Viewer struct {
	UserID uint
	Admin  bool
}

type OrderService struct {
	orders *repositories.OrderRepository
	events *event.Dispatcher
}

func NewOrderService(db *orm.Query, events *event.Dispatcher) *OrderService {
	if events == nil {
		events = event.Default()
	}
	return &OrderService{orders: repositories.NewOrderRepository(db), events: events}
}

// List pages through the user's own orders, newest first.
func (s *OrderService) List(ctx context.Context, userID uint, page, limit int) ([]models.Order, orm.Pagination, error) {
	orders, p, err := s.orders.ForUser(ctx, userID, page, limit)
	if err != nil {
		return nil, orm.Pagination{}, wrapDB("orders: list", err)
	}
	return orders, p, nil
}

// Show returns one order. Someone else's order is reported as missing
// unless the viewer is an admin.
func (s *OrderService) Show(ctx context.Context, v Viewer, id string) (models.Order, error) {
	order, err := s.orders.Find(ctx, id)
	if orm.IsNotFound(err) {
		return models.Order{}, &NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return models.Order{}, wrapDB("orders: show", err)
	}
	if order.UserID != v.UserID && !v.Admin {
		return models.Order{}, &NotFoundError{Resource: "order", ID: id}
	}
	return order, nil
}

// AdvanceStatus moves an order one step along pending → shipped →
// delivered. Skipping a step, going back, or losing a race to another
// update yields ErrInvalidTransition.
func (s *OrderService) AdvanceStatus(ctx context.Context, id, to string) (models.Order, error) {
	order, err := s.Show(ctx, Viewer{Admin: true}, id)
	if err != nil {
		return models.Order{}, err
	}

	next, ok := models.NextStatus(order.Status)
	if !ok || next != to {
		return models.Order{}, ErrInvalidTransition
	}

	moved, err := s.orders.AdvanceStatus(ctx, id, order.Status, to)
	if err != nil {
		return models.Order{}, wrapDB("orders: advance status", err)
	}
	if !moved {
		return models.Order{}, ErrInvalidTransition
	}

	from := order.Status
	order.Status = to
	logger.WithCtx(ctx).Info("orders: status changed", "order_id", id, "from", from, "to", to)
	s.events.FireAsync(ctx, events.OrderStatusChanged, events.OrderStatusChangedPayload{
		OrderID: id,
		UserID:  order.UserID,
		From:    from,
		To:      to,
	})
	return order, nil
}
