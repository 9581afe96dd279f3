// Package rbac maps roles to permissions and guards routes by the role claim
// the auth middleware put in the request context.
//
//	policy := rbac.Policy{"admin": {"catalog.write", "orders.manage"}}
//	admin := api.Group("", policy.Require("catalog.write"))
package rbac

import (
	"net/http"
	"slices"

	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/middleware"
	"github.com/shashiranjanraj/kashvi-shop/pkg/response"
)

type Permission string

// Policy lists the permissions each role holds. Roles not in the map hold
// none.
type Policy map[string][]Permission

// Can reports whether role holds every one of perms.
func (p Policy) Can(role string, perms ...Permission) bool {
	held := p[role]
	for _, want := range perms {
		if !slices.Contains(held, want) {
			return false
		}
	}
	return true
}

// Require answers 403 unless the caller's role holds all of perms. It must
// run after middleware.AuthMiddleware.
func (p Policy) Require(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok || !p.Can(role, perms...) {
				logger.WithCtx(r.Context()).Warn("rbac: denied", "role", role, "need", perms, "path", r.URL.Path)
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
