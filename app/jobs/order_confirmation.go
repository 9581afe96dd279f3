// Package jobs holds the queued jobs the shop dispatches.
package jobs

import (
	"context"
	"fmt"
	"html/template"

	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/mail"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/queue"
)

const OrderConfirmationJob = "orders.send_confirmation"

var confirmationTmpl = template.Must(template.New("order_confirmation").
	Funcs(template.FuncMap{"money": money}).
	Parse(`<h1>Thanks for your order</h1>
<p>Order <strong>{{.Order.ID}}</strong> is {{.Order.Status}}.</p>
<table>
{{range .Order.Items}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}} × {{money .UnitPrice}}</td><td>{{money .LineTotal}}</td></tr>
{{end}}</table>
<p>Total: <strong>{{money .Order.TotalPrice}}</strong></p>`))

func money(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// SendOrderConfirmation mails the customer a summary of a placed order.
// Only the ids travel through the queue; the order is reloaded when the job
// runs.
type SendOrderConfirmation struct {
	OrderID string `json:"order_id"`
	UserID  uint   `json:"user_id"`

	db     *orm.Query
	mailer mail.Sender
}

func (SendOrderConfirmation) JobName() string { return OrderConfirmationJob }

func (j *SendOrderConfirmation) Handle(ctx context.Context) error {
	order, err := repositories.NewOrderRepository(j.db).Find(ctx, j.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", j.OrderID, err)
	}
	user, err := repositories.NewUserRepository(j.db).FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", order.UserID, err)
	}

	msg := mail.To(user.Email).
		Subject(fmt.Sprintf("Your order %s", order.ID)).
		Render(confirmationTmpl, map[string]any{"Order": order})
	return j.mailer.Send(ctx, msg)
}

// Register makes the job runnable by m's workers.
func Register(m *queue.Manager, db *orm.Query, mailer mail.Sender) {
	m.Register(OrderConfirmationJob, func() queue.Job {
		return &SendOrderConfirmation{db: db, mailer: mailer}
	})
}
