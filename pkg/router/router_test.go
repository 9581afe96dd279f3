package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestGroupJoinsPrefixAndRunsMiddleware(t *testing.T) {
	r := router.New()

	var hits []string
	tag := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				hits = append(hits, name)
				next.ServeHTTP(w, req)
			})
		}
	}

	api := r.Group("/api/", tag("api"))
	orders := api.Group("orders", tag("orders"))
	orders.Patch("/{id}/status", "orders.status", ok, tag("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/orders/abc/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"api", "orders", "route"}, hits)
}

func TestURLResolvesNamedRoute(t *testing.T) {
	r := router.New()
	r.Group("/api").Get("/orders/{id}", "orders.show", ok)

	url, err := r.URL("orders.show", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/42", url)

	_, err = r.URL("orders.show", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesAreSorted(t *testing.T) {
	r := router.New()
	api := r.Group("/api")
	api.Post("/cart", "cart.add", ok)
	api.Delete("/cart", "cart.remove", ok)
	api.Get("/cart", "cart.show", ok)
	r.Get("/healthz", "", ok)

	routes := r.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, router.RouteInfo{Method: http.MethodDelete, Path: "/api/cart", Name: "cart.remove"}, routes[0])
	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, http.MethodPost, routes[2].Method)
	assert.Equal(t, "/healthz", routes[3].Path)
	assert.Empty(t, routes[3].Name)
}

func TestMethodMismatchIs405(t *testing.T) {
	r := router.New()
	r.Put("/things/{id}", "things.update", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"status":405,"error":"method_not_allowed","message":"Method not allowed"}`, rec.Body.String())
}

func TestUnknownPathIsJSON404(t *testing.T) {
	r := router.New()
	r.Get("/healthz", "healthz", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDuplicateNamePanics(t *testing.T) {
	r := router.New()
	r.Get("/cart", "cart.show", ok)
	assert.Panics(t, func() { r.Group("/api").Get("/cart", "cart.show", ok) })
}

func TestURLEscapesParams(t *testing.T) {
	r := router.New()
	r.Get("/files/{name}", "files.show", ok)

	u, err := r.URL("files.show", map[string]string{"name": "q3 report"})
	require.NoError(t, err)
	assert.Equal(t, "/files/q3%20report", u)
}
