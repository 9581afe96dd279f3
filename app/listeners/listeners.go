// Package listeners reacts to domain events once the firing transaction has
// committed.
package listeners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kashvi-shop/app/events"
	"github.com/shashiranjanraj/kashvi-shop/app/jobs"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
	"github.com/shashiranjanraj/kashvi-shop/pkg/sse"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
)

// StatusMessage is what a websocket client receives when one of its orders
// changes status.
type StatusMessage struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Register wires every listener onto d.
func Register(d *event.Dispatcher, catalog *services.CatalogService, q *queue.Manager, hub *ws.Hub, feed *sse.Broker) {
	d.Listen(events.OrderPlaced, ForgetSoldProducts(catalog))
	d.Listen(events.OrderPlaced, QueueConfirmation(q))
	d.Listen(events.OrderStatusChanged, PushStatus(hub))
	d.Listen(events.OrderPlaced, Publish(feed, events.OrderPlaced))
	d.Listen(events.OrderStatusChanged, Publish(feed, events.OrderStatusChanged))
}

// ForgetSoldProducts drops cached products whose stock a checkout changed.
func ForgetSoldProducts(catalog *services.CatalogService) event.Handler {
	return func(ctx context.Context, payload any) error {
		p, ok := payload.(events.OrderPlacedPayload)
		if !ok {
			return fmt.Errorf("listeners: unexpected payload %T", payload)
		}
		catalog.ForgetProducts(ctx, p.ProductIDs...)
		return nil
	}
}

// QueueConfirmation dispatches the confirmation mail job.
func QueueConfirmation(q *queue.Manager) event.Handler {
	return func(ctx context.Context, payload any) error {
		p, ok := payload.(events.OrderPlacedPayload)
		if !ok {
			return fmt.Errorf("listeners: unexpected payload %T", payload)
		}
		return q.Dispatch(ctx, &jobs.SendOrderConfirmation{OrderID: p.OrderID, UserID: p.UserID})
	}
}

// PushStatus sends the change to the order owner's open websockets.
func PushStatus(hub *ws.Hub) event.Handler {
	return func(_ context.Context, payload any) error {
		p, ok := payload.(events.OrderStatusChangedPayload)
		if !ok {
			return fmt.Errorf("listeners: unexpected payload %T", payload)
		}
		return hub.SendTo(p.UserID, StatusMessage{
			Type:    events.OrderStatusChanged,
			OrderID: p.OrderID,
			From:    p.From,
			To:      p.To,
		})
	}
}

// Publish forwards the payload to the admin order stream.
func Publish(feed *sse.Broker, name string) event.Handler {
	return func(_ context.Context, payload any) error {
		feed.Publish(name, payload)
		return nil
	}
}

// RegisterWebhook posts both order events to the configured webhook through
// the queue.
func RegisterWebhook(d *event.Dispatcher, q *queue.Manager) {
	d.Listen(events.OrderPlaced, QueueWebhook(q, events.OrderPlaced))
	d.Listen(events.OrderStatusChanged, QueueWebhook(q, events.OrderStatusChanged))
}

// QueueWebhook dispatches a webhook delivery carrying the payload.
func QueueWebhook(q *queue.Manager, name string) event.Handler {
	return func(ctx context.Context, payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("listeners: encode %s: %w", name, err)
		}
		return q.Dispatch(ctx, &jobs.DeliverOrderWebhook{
			DeliveryID: uuid.NewString(),
			Event:      name,
			Payload:    raw,
		})
	}
}
