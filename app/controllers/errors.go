package controllers

import (
	"errors"
	"net/http"

	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

// retryAfterSeconds is sent with every transient failure.
const retryAfterSeconds = "1"

// fail maps a service error onto the response envelope. Every controller
// goes through here so a given error always produces the same status and
// code.
func fail(c *ctx.Context, err error) {
	var (
		short *services.InsufficientStockError
		vErr  *services.ValidationError
	)

	switch {
	case errors.Is(err, services.ErrEmptyCart):
		c.Fail(http.StatusBadRequest, "empty_cart", err.Error(), nil)
	case errors.As(err, &short):
		c.Fail(http.StatusBadRequest, "insufficient_stock", short.Error(), map[string]any{
			"product_id":   short.ProductID,
			"product_name": short.ProductName,
			"available":    short.Available,
			"requested":    short.Requested,
		})
	case errors.As(err, &vErr):
		c.Fail(http.StatusBadRequest, "validation", err.Error(), map[string]string{vErr.Field: vErr.Message})
	case errors.Is(err, services.ErrNotFound):
		c.Fail(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, services.ErrTransient):
		logger.WithCtx(c.Context()).Warn("request hit a transient failure", "error", err)
		c.SetHeader("Retry-After", retryAfterSeconds)
		c.Fail(http.StatusConflict, "transient", services.ErrTransient.Error(), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Fail(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, services.ErrInactiveUser):
		c.Fail(http.StatusForbidden, "inactive_user", err.Error(), nil)
	case errors.Is(err, services.ErrEmailTaken):
		c.Fail(http.StatusBadRequest, "email_taken", err.Error(), map[string]string{"email": "has already been taken"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.Fail(http.StatusBadRequest, "invalid_transition", err.Error(), nil)
	default:
		logger.WithCtx(c.Context()).Error("request failed", "error", err)
		c.Fail(http.StatusInternalServerError, "internal", "Internal server error", nil)
	}
}

// page reads ?page= and ?limit=.
func page(c *ctx.Context) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", 20)
}
