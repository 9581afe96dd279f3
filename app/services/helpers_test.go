package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/database/dbtest"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *orm.Query {
	t.Helper()
	return orm.New(dbtest.Open(t))
}

// newUser registers a customer, which also creates their cart.
func newUser(t *testing.T, db *orm.Query) models.User {
	t.Helper()
	u, err := services.NewAuthService(db).Register(context.Background(), services.RegisterInput{
		Email:    fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Password: "secret-pass",
	})
	require.NoError(t, err)
	return u
}

func newProduct(t *testing.T, db *orm.Query, name string, price, stock int64) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, db.Create(&p))
	return p
}

func addToCart(t *testing.T, db *orm.Query, userID, productID uint, qty int64) {
	t.Helper()
	_, err := services.NewCartService(db).AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
}

func stockOf(t *testing.T, db *orm.Query, id uint) int64 {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", id).First(&p))
	return p.Stock
}

func countRows(t *testing.T, db *orm.Query, model any) int64 {
	t.Helper()
	n, err := db.Model(model).Count()
	require.NoError(t, err)
	return n
}
