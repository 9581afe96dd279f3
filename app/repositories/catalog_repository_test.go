package repositories_test

import (
	"context"
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/database/dbtest"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stocked(t *testing.T, db *orm.Query, stock ...int64) []uint {
	t.Helper()
	ids := make([]uint, 0, len(stock))
	for i, s := range stock {
		p := models.Product{Name: "item-" + string(rune('a'+i)), Price: 100, Stock: s}
		require.NoError(t, db.Create(&p))
		ids = append(ids, p.ID)
	}
	return ids
}

func stockOf(t *testing.T, db *orm.Query, id uint) int64 {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", id).First(&p))
	return p.Stock
}

func TestDecrementStock(t *testing.T) {
	ctx := context.Background()

	t.Run("exact per-row deltas", func(t *testing.T) {
		db := orm.New(dbtest.Open(t))
		ids := stocked(t, db, 10, 5, 3)
		repo := repositories.NewProductRepository(db)

		n, err := repo.DecrementStock(ctx, map[uint]int64{ids[0]: 4, ids[1]: 5, ids[2]: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Equal(t, int64(6), stockOf(t, db, ids[0]))
		assert.Equal(t, int64(0), stockOf(t, db, ids[1]))
		assert.Equal(t, int64(2), stockOf(t, db, ids[2]))
	})

	t.Run("short row is left alone", func(t *testing.T) {
		db := orm.New(dbtest.Open(t))
		ids := stocked(t, db, 1)
		repo := repositories.NewProductRepository(db)

		n, err := repo.DecrementStock(ctx, map[uint]int64{ids[0]: 2})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, int64(1), stockOf(t, db, ids[0]))
	})

	t.Run("mixed map updates only the rows that can pay", func(t *testing.T) {
		db := orm.New(dbtest.Open(t))
		ids := stocked(t, db, 4, 1)
		repo := repositories.NewProductRepository(db)

		n, err := repo.DecrementStock(ctx, map[uint]int64{ids[0]: 2, ids[1]: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "callers treat n != len(qty) as a stock conflict")
		assert.Equal(t, int64(2), stockOf(t, db, ids[0]))
		assert.Equal(t, int64(1), stockOf(t, db, ids[1]))
	})

	t.Run("products outside the map are untouched", func(t *testing.T) {
		db := orm.New(dbtest.Open(t))
		ids := stocked(t, db, 7, 7)
		repo := repositories.NewProductRepository(db)

		n, err := repo.DecrementStock(ctx, map[uint]int64{ids[1]: 7})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, int64(7), stockOf(t, db, ids[0]))
		assert.Equal(t, int64(0), stockOf(t, db, ids[1]))
	})

	t.Run("empty map is a no-op", func(t *testing.T) {
		repo := repositories.NewProductRepository(orm.New(dbtest.Open(t)))
		n, err := repo.DecrementStock(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestLockForCheckoutOrdersByID(t *testing.T) {
	db := orm.New(dbtest.Open(t))
	ids := stocked(t, db, 1, 2, 3)
	repo := repositories.NewProductRepository(db)

	got, err := repo.LockForCheckout(context.Background(), []uint{ids[2], ids[0], ids[1]})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, ids[i], p.ID)
	}
}
