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

func TestUserUpdateTouchesProfileColumnsOnly(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(orm.New(dbtest.Open(t)))

	phone := "555-0100"
	u := models.User{Username: "a@shop.test", Email: "a@shop.test", Password: "hash-1", Phone: &phone, IsActive: true, Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, &u))

	u.Password = "tampered"
	u.Email = "b@shop.test"
	u.FirstName = "Asha"
	u.Phone = nil
	u.IsActive = false
	require.NoError(t, repo.Update(ctx, &u))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.Password)
	assert.Equal(t, "a@shop.test", got.Email)
	assert.Equal(t, "Asha", got.FirstName)
	assert.Nil(t, got.Phone)
	assert.False(t, got.IsActive, "zero values are written")

	taken, err := repo.EmailTaken(ctx, "a@shop.test")
	require.NoError(t, err)
	assert.True(t, taken)

	_, err = repo.FindByEmail(ctx, "b@shop.test")
	assert.True(t, orm.IsNotFound(err))
}
