// Package dbtest opens throwaway, fully migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/shashiranjanraj/kashvi-shop/database/migrations"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open returns an in-memory database private to t with every migration
// applied and foreign keys enforced. The pool holds a single connection, so
// concurrent transactions queue behind each other instead of failing with
// SQLITE_BUSY; that mirrors row-lock waiting closely enough for tests.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.New(db, nil).Run(context.Background()))
	return db
}

// OpenFile is Open on a temporary SQLite file with an unrestricted pool, the
// way a deployment runs it. Use it where concurrent writers matter.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_foreign_keys=1"
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(25)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.New(db, nil).Run(context.Background()))
	return db
}
