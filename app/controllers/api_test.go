package controllers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/routes"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/database/dbtest"
	"github.com/shashiranjanraj/kashvi-shop/pkg/auth"
	"github.com/shashiranjanraj/kashvi-shop/pkg/event"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/shashiranjanraj/kashvi-shop/pkg/router"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

type api struct {
	t       *testing.T
	db      *orm.Query
	handler http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := orm.New(dbtest.Open(t))
	r := router.New()
	routes.RegisterAPI(r, routes.Deps{DB: db, Events: event.New(nil), Hub: ws.NewHub()})
	return &api{t: t, db: db, handler: r.Handler()}
}

// user registers an account through the service and returns it with an
// access token.
func (a *api) user(role string) (models.User, string) {
	a.t.Helper()
	u, err := services.NewAuthService(a.db).Register(context.Background(), services.RegisterInput{
		Email:    fmt.Sprintf("%s-%d@example.com", role, len(a.t.Name())+int(countUsers(a))),
		Password: "secret-pass",
		Role:     role,
	})
	require.NoError(a.t, err)
	token, err := auth.GenerateToken(u.ID, u.Role)
	require.NoError(a.t, err)
	return u, token
}

func countUsers(a *api) int64 {
	n, err := a.db.Model(&models.User{}).Count()
	require.NoError(a.t, err)
	return n
}

func (a *api) product(name string, price, stock int64) models.Product {
	a.t.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(a.t, a.db.Create(&p))
	return p
}

func (a *api) do(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestCheckoutFlow(t *testing.T) {
	a := newAPI(t)
	_, token := a.user(models.RoleUser)
	lamp := a.product("Lamp", 1999, 3)

	rec, env := a.do(http.MethodPost, "/api/orders", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_cart", env.Error)

	rec, env = a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d,"quantity":2}`, lamp.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item models.CartItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, int64(2), item.Quantity)

	rec, env = a.do(http.MethodGet, "/api/cart", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view services.CartView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, int64(3998), view.Total)

	rec, env = a.do(http.MethodPost, "/api/orders", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var placed struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.Len(t, placed.OrderID, 36)

	rec, _ = a.do(http.MethodGet, "/api/orders/"+placed.OrderID, token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	a := newAPI(t)
	_, token := a.user(models.RoleUser)
	lamp := a.product("Lamp", 1999, 1)

	rec, _ := a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d,"quantity":2}`, lamp.ID))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := a.do(http.MethodPost, "/api/orders", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient_stock", env.Error)
	assert.JSONEq(t,
		fmt.Sprintf(`{"product_id":%d,"product_name":"Lamp","available":1,"requested":2}`, lamp.ID),
		string(env.Errors))
}

func TestCartValidationAndNotFound(t *testing.T) {
	a := newAPI(t)
	_, token := a.user(models.RoleUser)
	lamp := a.product("Lamp", 1999, 1)

	rec, env := a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d,"quantity":0}`, lamp.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Error)

	rec, env = a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d,"quantity":9223372036854775807}`, lamp.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Error)

	rec, env = a.do(http.MethodPost, "/api/cart", token, `{"productId":9999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error)

	rec, _ = a.do(http.MethodDelete, "/api/cart", token, fmt.Sprintf(`{"productId":%d}`, lamp.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d}`, lamp.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = a.do(http.MethodDelete, "/api/cart", token, fmt.Sprintf(`{"productId":%d}`, lamp.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)

	rec, _ := a.do(http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = a.do(http.MethodPost, "/api/orders", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	a := newAPI(t)

	rec, _ := a.do(http.MethodPost, "/api/auth/register", "", `{"email":"ada@example.com","password":"secret-pass","first_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env := a.do(http.MethodPost, "/api/auth/register", "", `{"email":"ada@example.com","password":"secret-pass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email_taken", env.Error)

	rec, env = a.do(http.MethodPost, "/api/auth/login", "", `{"email":"ada@example.com","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var pair services.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEmpty(t, pair.Access)

	rec, env = a.do(http.MethodGet, "/api/users", pair.Access, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"email":"ada@example.com"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = a.do(http.MethodPost, "/api/auth/login", "", `{"email":"ada@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", env.Error)
}

func TestAdminOnlyCatalogWrites(t *testing.T) {
	a := newAPI(t)
	_, userToken := a.user(models.RoleUser)
	_, adminToken := a.user(models.RoleAdmin)

	rec, _ := a.do(http.MethodPost, "/api/categories", userToken, `{"name":"Lighting"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := a.do(http.MethodPost, "/api/categories", adminToken, `{"name":"Lighting"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	rec, _ = a.do(http.MethodPost, "/api/products", adminToken,
		fmt.Sprintf(`{"name":"Lamp","price":1999,"stock":0,"category_id":%d}`, cat.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = a.do(http.MethodGet, fmt.Sprintf("/api/products?category=%d", cat.ID), userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	rec, _ = a.do(http.MethodGet, "/api/products/abc", userToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderStatusAdvance(t *testing.T) {
	a := newAPI(t)
	_, token := a.user(models.RoleUser)
	_, adminToken := a.user(models.RoleAdmin)
	lamp := a.product("Lamp", 1999, 3)

	a.do(http.MethodPost, "/api/cart", token, fmt.Sprintf(`{"productId":%d}`, lamp.ID))
	_, env := a.do(http.MethodPost, "/api/orders", token, "")
	var placed struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	path := "/api/orders/" + placed.OrderID + "/status"

	rec, _ := a.do(http.MethodPatch, path, token, `{"status":"shipped"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodPatch, path, adminToken, `{"status":"delivered"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_transition", env.Error)

	rec, _ = a.do(http.MethodPatch, path, adminToken, `{"status":"shipped"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(http.MethodGet, "/api/orders/"+placed.OrderID, adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code, "admins see every order")
}

func TestPatchUpdatesOnlyGivenFields(t *testing.T) {
	a := newAPI(t)
	_, userToken := a.user(models.RoleUser)
	_, adminToken := a.user(models.RoleAdmin)

	rec, env := a.do(http.MethodPost, "/api/categories", adminToken, `{"name":"Lighting","description":"Lamps and bulbs"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat models.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	rec, env = a.do(http.MethodPatch, fmt.Sprintf("/api/categories/%d", cat.ID), adminToken, `{"description":"Lamps"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	assert.Equal(t, "Lighting", cat.Name)
	assert.Equal(t, "Lamps", cat.Description)

	rec, env = a.do(http.MethodPost, "/api/products", adminToken,
		fmt.Sprintf(`{"name":"Lamp","description":"Brass","price":1999,"stock":4,"category_id":%d}`, cat.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lamp models.Product
	require.NoError(t, json.Unmarshal(env.Data, &lamp))
	path := fmt.Sprintf("/api/products/%d", lamp.ID)

	rec, _ = a.do(http.MethodPatch, path, userToken, `{"stock":9}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = a.do(http.MethodPatch, path, adminToken, `{"stock":9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got models.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(9), got.Stock)
	assert.Equal(t, int64(1999), got.Price)
	assert.Equal(t, "Brass", got.Description)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cat.ID, *got.CategoryID)

	rec, env = a.do(http.MethodPatch, path, adminToken, `{"category_id":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, int64(9), got.Stock)

	rec, env = a.do(http.MethodPatch, path, adminToken, `{"price":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", env.Error)

	rec, _ = a.do(http.MethodPatch, path, adminToken, `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = a.do(http.MethodPatch, "/api/users", userToken, `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Ada", me.FirstName)
}
