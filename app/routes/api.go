// Package routes mounts the shop's HTTP API.
package routes

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/controllers"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/cache"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/middleware"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/rbac"
	"github.com/shashiranjanraj/kashvi-shop/pkg/router"
	"github.com/shashiranjanraj/kashvi-shop/pkg/sse"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
)

// Deps is what the API needs from the running application. Zero values are
// fine for listing routes.
type Deps struct {
	DB      *orm.Query
	Cache   *cache.Store
	Events  *event.Dispatcher
	Hub     *ws.Hub
	Feed    *sse.Broker
	GraphQL http.Handler
}

// Services builds the service layer over d.
func (d Deps) Services() (*services.CatalogService, *services.CheckoutCoordinator, *services.OrderService) {
	return services.NewCatalogService(d.DB, d.Cache),
		services.NewCheckoutCoordinator(d.DB, d.Events),
		services.NewOrderService(d.DB, d.Events)
}

const (
	ManageCatalog rbac.Permission = "catalog.write"
	ManageOrders  rbac.Permission = "orders.manage"
)

// Policy is who may do what beyond reading the catalog and owning a cart.
var Policy = rbac.Policy{
	models.RoleAdmin: {ManageCatalog, ManageOrders},
	models.RoleUser:  {},
}

func RegisterAPI(r *router.Router, d Deps) {
	catalog, checkout, orders := d.Services()
	feed := d.Feed
	if feed == nil {
		feed = sse.NewBroker()
	}

	authCtl := controllers.NewAuthController(services.NewAuthService(d.DB))
	userCtl := controllers.NewUserController(services.NewUserService(d.DB))
	categoryCtl := controllers.NewCategoryController(catalog)
	productCtl := controllers.NewProductController(catalog)
	cartCtl := controllers.NewCartController(services.NewCartService(d.DB))
	orderCtl := controllers.NewOrderController(checkout, orders, d.Hub)

	api := r.Group("/api")

	// Credentials endpoints get a tighter limit than the global one.
	guest := api.Group("/auth", middleware.RateLimit(20, time.Minute))
	guest.Post("/register", "auth.register", ctx.Wrap(authCtl.Register))
	guest.Post("/login", "auth.login", ctx.Wrap(authCtl.Login))
	guest.Post("/refresh", "auth.refresh", ctx.Wrap(authCtl.Refresh))

	user := api.Group("", middleware.AuthMiddleware)
	catalogAdmin := user.Group("", Policy.Require(ManageCatalog))
	orderAdmin := user.Group("", Policy.Require(ManageOrders))

	user.Get("/users", "users.show", ctx.Wrap(userCtl.Show))
	user.Put("/users", "users.update", ctx.Wrap(userCtl.Update))
	user.Patch("/users", "users.patch", ctx.Wrap(userCtl.Update))

	user.Get("/categories", "categories.index", ctx.Wrap(categoryCtl.Index))
	user.Get("/categories/{id}", "categories.show", ctx.Wrap(categoryCtl.Show))
	catalogAdmin.Post("/categories", "categories.store", ctx.Wrap(categoryCtl.Store))
	catalogAdmin.Put("/categories/{id}", "categories.update", ctx.Wrap(categoryCtl.Update))
	catalogAdmin.Patch("/categories/{id}", "categories.patch", ctx.Wrap(categoryCtl.Patch))
	catalogAdmin.Delete("/categories/{id}", "categories.destroy", ctx.Wrap(categoryCtl.Destroy))

	user.Get("/products", "products.index", ctx.Wrap(productCtl.Index))
	user.Get("/products/{id}", "products.show", ctx.Wrap(productCtl.Show))
	catalogAdmin.Post("/products", "products.store", ctx.Wrap(productCtl.Store))
	catalogAdmin.Put("/products/{id}", "products.update", ctx.Wrap(productCtl.Update))
	catalogAdmin.Patch("/products/{id}", "products.patch", ctx.Wrap(productCtl.Patch))
	catalogAdmin.Delete("/products/{id}", "products.destroy", ctx.Wrap(productCtl.Destroy))

	user.Get("/cart", "cart.show", ctx.Wrap(cartCtl.Show))
	user.Post("/cart", "cart.store", ctx.Wrap(cartCtl.Store))
	user.Delete("/cart", "cart.destroy", ctx.Wrap(cartCtl.Destroy))

	user.Post("/orders", "orders.store", ctx.Wrap(orderCtl.Store))
	user.Get("/orders", "orders.index", ctx.Wrap(orderCtl.Index))
	user.Get("/orders/ws", "orders.feed", ctx.Wrap(orderCtl.Feed))
	orderAdmin.Get("/orders/stream", "orders.stream", feed.ServeHTTP)
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(orderCtl.Show))
	orderAdmin.Patch("/orders/{id}/status", "orders.status", ctx.Wrap(orderCtl.UpdateStatus))

	gql := d.GraphQL
	if gql == nil {
		gql = http.NotFoundHandler()
	}
	r.Group("", middleware.AuthMiddleware).Post("/graphql", "graphql", gql.ServeHTTP)
}
