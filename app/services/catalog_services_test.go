package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryCRUD(t *testing.T) {
	db := newDB(t)
	svc := services.NewCatalogService(db, nil)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Lighting"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, services.CategoryInput{Name: "Lighting"})
	assert.ErrorIs(t, err, services.ErrValidation, "names are unique")

	cat, err = svc.UpdateCategory(ctx, cat.ID, services.CategoryInput{Name: "Lamps", Description: "Desk and floor"})
	require.NoError(t, err)
	assert.Equal(t, "Lamps", cat.Name)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.UpdateCategory(ctx, 999, services.CategoryInput{Name: "x"})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDeleteCategoryKeepsProducts(t *testing.T) {
	db := newDB(t)
	svc := services.NewCatalogService(db, nil)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Lighting"})
	require.NoError(t, err)
	lamp, err := svc.CreateProduct(ctx, services.ProductInput{Name: "Lamp", Price: 1999, Stock: 3, CategoryID: &cat.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, cat.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, cat.ID), services.ErrNotFound)

	got, err := svc.ShowProduct(ctx, lamp.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestProductCRUD(t *testing.T) {
	db := newDB(t)
	svc := services.NewCatalogService(db, nil)
	ctx := context.Background()

	missing := uint(999)
	_, err := svc.CreateProduct(ctx, services.ProductInput{Name: "Lamp", CategoryID: &missing})
	assert.ErrorIs(t, err, services.ErrValidation)

	cat, err := svc.CreateCategory(ctx, services.CategoryInput{Name: "Lighting"})
	require.NoError(t, err)
	lamp, err := svc.CreateProduct(ctx, services.ProductInput{Name: "Lamp", Price: 1999, Stock: 3, CategoryID: &cat.ID})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, services.ProductInput{Name: "Desk", Price: 25000, Stock: 1})
	require.NoError(t, err)

	got, err := svc.ShowProduct(ctx, lamp.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Lighting", got.Category.Name)

	updated, err := svc.UpdateProduct(ctx, lamp.ID, services.ProductInput{Name: "Lamp XL", Price: 2999, Stock: 7, CategoryID: &cat.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2999), updated.Price)

	page, p, err := svc.ListProducts(ctx, repositories.ProductFilter{CategoryID: cat.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Total)
	assert.Equal(t, "Lamp XL", page[0].Name)

	page, _, err = svc.ListProducts(ctx, repositories.ProductFilter{Search: "Des"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Desk", page[0].Name)

	require.NoError(t, svc.DeleteProduct(ctx, lamp.ID))
	_, err = svc.ShowProduct(ctx, lamp.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, lamp.ID), services.ErrNotFound)
}

func TestProductPriceBounds(t *testing.T) {
	db := newDB(t)
	svc := services.NewCatalogService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, services.ProductInput{Name: "Yacht", Price: services.MaxUnitPrice + 1})
	assert.ErrorIs(t, err, services.ErrValidation)
	_, err = svc.CreateProduct(ctx, services.ProductInput{Name: "Refund", Price: -1})
	assert.ErrorIs(t, err, services.ErrValidation)

	lamp, err := svc.CreateProduct(ctx, services.ProductInput{Name: "Lamp", Price: services.MaxUnitPrice})
	require.NoError(t, err)

	huge := int64(services.MaxUnitPrice + 1)
	_, err = svc.PatchProduct(ctx, lamp.ID, services.ProductPatch{Price: &huge})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestProductWritesForgetCache(t *testing.T) {
	db := newDB(t)
	lamp := newProduct(t, db, "Lamp", 1999, 3)

	rdb, mock := redismock.NewClientMock()
	svc := services.NewCatalogService(db, cache.New(rdb, "shop:"))
	ctx := context.Background()

	key := fmt.Sprintf("shop:products:%d", lamp.ID)
	mock.ExpectDel(key).SetVal(1)
	mock.ExpectDel("shop:" + repositories.CategoriesCacheKey).SetVal(1)

	_, err := svc.UpdateProduct(ctx, lamp.ID, services.ProductInput{Name: "Lamp", Price: 1500, Stock: 3})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, services.CategoryInput{Name: "Lighting"})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShowProductServesFromCache(t *testing.T) {
	db := newDB(t)

	rdb, mock := redismock.NewClientMock()
	svc := services.NewCatalogService(db, cache.New(rdb, "shop:"))

	mock.ExpectGet("shop:products:77").SetVal(`{"id":77,"name":"Cached lamp","price":100,"stock":1}`)

	got, err := svc.ShowProduct(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, models.Product{ID: 77, Name: "Cached lamp", Price: 100, Stock: 1}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
