package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	shophttp "github.com/shashiranjanraj/kashvi-shop/pkg/http"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
)

const OrderWebhookJob = "orders.webhook"

// Webhook is where order events are posted.
type Webhook struct {
	URL    string
	Token  string
	Client *shophttp.Client
}

// DeliverOrderWebhook posts one order event. Delivery is at least once: a
// receiver should dedupe on the X-Shop-Delivery header.
type DeliverOrderWebhook struct {
	DeliveryID string          `json:"delivery_id"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`

	hook Webhook
}

func (DeliverOrderWebhook) JobName() string { return OrderWebhookJob }

func (j *DeliverOrderWebhook) Handle(ctx context.Context) error {
	headers := map[string]string{
		"X-Shop-Event":    j.Event,
		"X-Shop-Delivery": j.DeliveryID,
	}
	if j.hook.Token != "" {
		headers["Authorization"] = "Bearer " + j.hook.Token
	}
	resp, err := j.hook.Client.PostJSON(ctx, j.hook.URL, map[string]any{
		"event": j.Event,
		"data":  j.Payload,
	}, headers)
	if err != nil {
		return err
	}
	if err := resp.Throw(); err != nil {
		return fmt.Errorf("webhook %s: %w", j.Event, err)
	}
	return nil
}

// RegisterWebhook makes the webhook job runnable by m's workers.
func RegisterWebhook(m *queue.Manager, hook Webhook) {
	if hook.Client == nil {
		hook.Client = shophttp.NewClient()
	}
	m.Register(OrderWebhookJob, func() queue.Job {
		return &DeliverOrderWebhook{hook: hook}
	})
}
