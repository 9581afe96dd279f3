package services

import (
	"context"
	"errors"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/events"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/collection"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// CheckoutCoordinator turns a user's cart into an order.
//
// PlaceOrder runs as one transaction: lock the cart lines, lock their
// products in id order, check stock, snapshot prices into order items,
// decrement stock with one guarded UPDATE and empty the cart. Either all of
// it commits or none of it does.
type CheckoutCoordinator struct {
	db          *orm.Query
	carts       *repositories.CartRepository
	products    *repositories.ProductRepository
	orders      *repositories.OrderRepository
	events      *event.Dispatcher
	timeout     time.Duration
	lockTimeout time.Duration
}

func NewCheckoutCoordinator(db *orm.Query, events *event.Dispatcher) *CheckoutCoordinator {
	return &CheckoutCoordinator{
		db:          db,
		carts:       repositories.NewCartRepository(db),
		products:    repositories.NewProductRepository(db),
		orders:      repositories.NewOrderRepository(db),
		events:      events,
		timeout:     config.CheckoutTimeout(),
		lockTimeout: config.LockTimeout(),
	}
}

// WithTimeouts overrides the whole-checkout deadline and the per-statement
// lock wait.
func (c *CheckoutCoordinator) WithTimeouts(checkout, lock time.Duration) *CheckoutCoordinator {
	cp := *c
	cp.timeout, cp.lockTimeout = checkout, lock
	return &cp
}

// PlaceOrder checks out userID's cart. It returns ErrEmptyCart,
// *InsufficientStockError (nothing written) or *TransientError (nothing
// written, safe to retry); any other error is unexpected.
func (c *CheckoutCoordinator) PlaceOrder(ctx context.Context, userID uint) (order models.Order, err error) {
	start := time.Now()
	defer func() { metrics.ObserveCheckout(checkoutResult(err), start) }()

	txCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	run := func(db *orm.Query) error {
		return db.Transaction(txCtx, func(tx *orm.Query) error {
			for _, stmt := range database.TxSetupSQL(tx.Dialect(), c.lockTimeout) {
				if _, err := tx.WithContext(txCtx).Exec(stmt); err != nil {
					return wrapDB("checkout: tx setup", err)
				}
			}

			placed, err := c.place(txCtx, tx, userID)
			if err != nil {
				return err
			}
			order = placed
			return nil
		})
	}

	// MySQL and SQL Server lock settings are per session: hold one
	// connection and restore them before it returns to the pool.
	if reset := database.TxResetSQL(c.db.Dialect(), c.lockTimeout); len(reset) > 0 {
		err = c.db.Pinned(txCtx, func(conn *orm.Query) error {
			defer resetSession(ctx, conn, reset)
			return run(conn)
		})
	} else {
		err = run(c.db)
	}
	if err != nil {
		return models.Order{}, classifyCheckout(err)
	}

	productIDs := collection.FilterMap(order.Items, func(it models.OrderItem) (uint, bool) {
		if it.ProductID == nil {
			return 0, false
		}
		return *it.ProductID, true
	})
	logger.WithCtx(ctx).Info("checkout: order placed",
		"order_id", order.ID, "user_id", userID, "total", order.TotalPrice, "lines", len(order.Items))
	c.dispatcher().FireAsync(ctx, events.OrderPlaced, events.OrderPlacedPayload{
		OrderID:    order.ID,
		UserID:     userID,
		Total:      order.TotalPrice,
		ProductIDs: productIDs,
	})
	return order, nil
}

func (c *CheckoutCoordinator) place(ctx context.Context, tx *orm.Query, userID uint) (models.Order, error) {
	carts := c.carts.WithTx(tx)
	products := c.products.WithTx(tx)

	items, err := carts.LockItemsForUser(ctx, userID)
	if err != nil {
		return models.Order{}, wrapDB("checkout: lock cart", err)
	}
	if len(items) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	ids := make([]uint, len(items))
	want := make(map[uint]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
		want[it.ProductID] += it.Quantity
	}

	locked, err := products.LockForCheckout(ctx, ids)
	if err != nil {
		return models.Order{}, wrapDB("checkout: lock products", err)
	}
	byID := collection.KeyBy(locked, func(p models.Product) uint { return p.ID })

	order := models.Order{
		UserID: userID,
		Status: models.OrderPending,
		Items:  make([]models.OrderItem, 0, len(items)),
	}
	// items are in product id order, so the reported shortage is the lowest
	// product id that is short.
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return models.Order{}, &NotFoundError{Resource: "product", ID: it.ProductID}
		}
		if p.Stock < it.Quantity {
			return models.Order{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   it.Quantity,
			}
		}

		productID := p.ID
		line := p.Price * it.Quantity
		order.TotalPrice += line
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   &productID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    it.Quantity,
			LineTotal:   line,
		})
	}

	if err := c.orders.WithTx(tx).Create(ctx, &order); err != nil {
		return models.Order{}, wrapDB("checkout: create order", err)
	}

	n, err := products.DecrementStock(ctx, want)
	if err != nil {
		return models.Order{}, wrapDB("checkout: decrement stock", err)
	}
	if n != int64(len(want)) {
		return models.Order{}, &TransientError{Op: "checkout: decrement stock", Err: ErrStockConflict}
	}

	if err := carts.Clear(ctx, userID); err != nil {
		return models.Order{}, wrapDB("checkout: clear cart", err)
	}
	return order, nil
}

// resetSession runs even when ctx is already done; a failure leaves the
// checkout lock settings on that pooled connection, so it is logged.
func resetSession(ctx context.Context, conn *orm.Query, stmts []string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, stmt := range stmts {
		if _, err := conn.WithContext(rctx).Exec(stmt); err != nil {
			logger.WithCtx(ctx).Warn("checkout: reset session settings", "sql", stmt, "error", err)
			return
		}
	}
}

func (c *CheckoutCoordinator) dispatcher() *event.Dispatcher {
	if c.events != nil {
		return c.events
	}
	return event.Default()
}

// classifyCheckout keeps domain errors as they are and turns retryable
// storage failures (including a commit that hit a deadlock) into
// *TransientError.
func classifyCheckout(err error) error {
	var insufficient *InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart), errors.As(err, &insufficient),
		errors.Is(err, ErrTransient), errors.Is(err, ErrNotFound):
		return err
	}
	return wrapDB("checkout", err)
}

func checkoutResult(err error) string {
	var insufficient *InsufficientStockError
	switch {
	case err == nil:
		return metrics.CheckoutPlaced
	case errors.Is(err, ErrEmptyCart):
		return metrics.CheckoutEmptyCart
	case errors.As(err, &insufficient):
		return metrics.CheckoutInsufficient
	case errors.Is(err, ErrTransient):
		return metrics.CheckoutTransient
	}
	return metrics.CheckoutFailed
}
