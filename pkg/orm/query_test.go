package orm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SQLite temp tables live on one connection, so they show whether every
// statement inside Pinned shares it.
func TestPinnedHoldsOneConnection(t *testing.T) {
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	q := orm.New(db)

	err = q.Pinned(ctx, func(conn *orm.Query) error {
		if _, err := conn.WithContext(ctx).Exec("CREATE TEMP TABLE pinned_rows (n INTEGER)"); err != nil {
			return err
		}
		err := conn.Transaction(ctx, func(tx *orm.Query) error {
			_, err := tx.Exec("INSERT INTO pinned_rows (n) VALUES (1), (2)")
			return err
		})
		if err != nil {
			return err
		}
		n, err := conn.WithContext(ctx).Table("pinned_rows").Count()
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), n)
		return nil
	})
	require.NoError(t, err)

	err = q.Pinned(ctx, func(conn *orm.Query) error {
		return fmt.Errorf("wrapped: %w", assert.AnError)
	})
	assert.ErrorIs(t, err, assert.AnError)
}
