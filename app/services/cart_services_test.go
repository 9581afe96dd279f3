package services_test

import (
	"context"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddItemUpserts(t *testing.T) {
	db := newDB(t)
	user := newUser(t, db)
	lamp := newProduct(t, db, "Lamp", 1999, 5)
	carts := services.NewCartService(db)
	ctx := context.Background()

	item, err := carts.AddItem(ctx, user.ID, lamp.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.Quantity)

	item, err = carts.AddItem(ctx, user.ID, lamp.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), item.Quantity)
	assert.Equal(t, "Lamp", item.Product.Name)

	view, err := carts.Show(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(5*1999), view.Total)
}

func TestCartAddItemRejects(t *testing.T) {
	db := newDB(t)
	user := newUser(t, db)
	lamp := newProduct(t, db, "Lamp", 1999, 5)
	carts := services.NewCartService(db)
	ctx := context.Background()

	_, err := carts.AddItem(ctx, user.ID, lamp.ID, 0)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = carts.AddItem(ctx, user.ID, 9999, 1)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = carts.AddItem(ctx, 9999, lamp.ID, 1)
	assert.ErrorIs(t, err, services.ErrNotFound, "user without a cart")
}

func TestCartAddItemCapsLineQuantity(t *testing.T) {
	db := newDB(t)
	user := newUser(t, db)
	lamp := newProduct(t, db, "Lamp", 1999, 5)
	carts := services.NewCartService(db)
	ctx := context.Background()

	_, err := carts.AddItem(ctx, user.ID, lamp.ID, services.MaxLineQuantity+1)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = carts.AddItem(ctx, user.ID, lamp.ID, services.MaxLineQuantity-1)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, user.ID, lamp.ID, 2)
	assert.ErrorIs(t, err, services.ErrValidation, "the merged line would pass the cap")

	item, err := carts.AddItem(ctx, user.ID, lamp.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(services.MaxLineQuantity), item.Quantity)
}

func TestCartRemoveItem(t *testing.T) {
	db := newDB(t)
	user := newUser(t, db)
	lamp := newProduct(t, db, "Lamp", 1999, 5)
	addToCart(t, db, user.ID, lamp.ID, 1)
	carts := services.NewCartService(db)
	ctx := context.Background()

	require.NoError(t, carts.RemoveItem(ctx, user.ID, lamp.ID))
	assert.ErrorIs(t, carts.RemoveItem(ctx, user.ID, lamp.ID), services.ErrNotFound)

	view, err := carts.Show(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestCartShowWithoutCart(t *testing.T) {
	db := newDB(t)

	view, err := services.NewCartService(db).Show(context.Background(), 4242)
	require.NoError(t, err)
	assert.Empty(t, view.ID)
	assert.NotNil(t, view.Items)
}
