// Package orm is a thin chainable layer over gorm used by every repository.
//
// Each builder method returns a fresh *Query, so a base query can be reused:
//
//	q := orm.DB().WithContext(ctx).Model(&models.Product{})
//	var p models.Product
//	err := q.Where("id = ?", id).ForUpdate().First(&p)
//
// Transactions hand the callback a *Query bound to the transaction:
//
//	err := orm.DB().Transaction(ctx, func(tx *orm.Query) error { ... })
package orm

import (
	"context"
	"errors"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by First when no row matches.
var ErrNotFound = gorm.ErrRecordNotFound

// Cacher is the subset of pkg/cache the query builder needs. The app kernel
// wires it so orm never imports cache.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheStore backs Query.Cache; nil disables caching.
var CacheStore Cacher

type Query struct {
	db *gorm.DB
}

// DB starts a query on the application's global connection.
func DB() *Query {
	return &Query{db: database.DB}
}

// New wraps an explicit connection (tests, CLI tools).
func New(db *gorm.DB) *Query {
	return &Query{db: db}
}

// Gorm exposes the underlying handle for migrations and one-off statements.
func (q *Query) Gorm() *gorm.DB { return q.db }

// Dialect is the driver name: sqlite, postgres, mysql or sqlserver.
func (q *Query) Dialect() string { return q.db.Dialector.Name() }

// with wraps db in a fresh session so the returned Query can be reused as a
// base without later calls leaking conditions into each other.
func (q *Query) with(db *gorm.DB) *Query {
	return &Query{db: db.Session(&gorm.Session{})}
}

func (q *Query) WithContext(ctx context.Context) *Query {
	return q.with(q.db.WithContext(ctx))
}

func (q *Query) Model(v interface{}) *Query {
	return q.with(q.db.Model(v))
}

func (q *Query) Table(name string) *Query {
	return q.with(q.db.Table(name))
}

func (q *Query) Select(query interface{}, args ...interface{}) *Query {
	return q.with(q.db.Select(query, args...))
}

func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	return q.with(q.db.Where(query, args...))
}

func (q *Query) Joins(query string, args ...interface{}) *Query {
	return q.with(q.db.Joins(query, args...))
}

func (q *Query) Preload(query string, args ...interface{}) *Query {
	return q.with(q.db.Preload(query, args...))
}

func (q *Query) Order(value interface{}) *Query {
	return q.with(q.db.Order(value))
}

func (q *Query) Limit(n int) *Query {
	return q.with(q.db.Limit(n))
}

func (q *Query) Offset(n int) *Query {
	return q.with(q.db.Offset(n))
}

// ForUpdate adds an exclusive row lock (SELECT … FOR UPDATE). SQLite's
// dialect drops the clause; SQL Server has no such syntax, so there it is a
// no-op and callers rely on database.TxSetupSQL's serializable isolation.
func (q *Query) ForUpdate() *Query {
	if q.Dialect() == "sqlserver" {
		return q
	}
	return q.with(q.db.Clauses(clause.Locking{Strength: "UPDATE"}))
}

// OnConflict attaches an upsert clause to the next Create.
func (q *Query) OnConflict(c clause.OnConflict) *Query {
	return q.with(q.db.Clauses(c))
}

func (q *Query) Get(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.db.Find(dest).Error
}

func (q *Query) First(dest interface{}) error {
	defer metrics.ObserveDBQuery("select", time.Now())
	return q.db.First(dest).Error
}

func (q *Query) Count() (int64, error) {
	defer metrics.ObserveDBQuery("select", time.Now())
	var n int64
	err := q.db.Count(&n).Error
	return n, err
}

func (q *Query) Create(v interface{}) error {
	defer metrics.ObserveDBQuery("insert", time.Now())
	return q.db.Create(v).Error
}

func (q *Query) Save(v interface{}) error {
	defer metrics.ObserveDBQuery("update", time.Now())
	return q.db.Save(v).Error
}

// Updates applies column changes to the rows selected by the query and
// reports how many rows changed.
func (q *Query) Updates(values interface{}) (int64, error) {
	defer metrics.ObserveDBQuery("update", time.Now())
	res := q.db.Updates(values)
	return res.RowsAffected, res.Error
}

// Delete removes the rows matching the query (or conds) and reports how many
// rows went away.
func (q *Query) Delete(v interface{}, conds ...interface{}) (int64, error) {
	defer metrics.ObserveDBQuery("delete", time.Now())
	res := q.db.Delete(v, conds...)
	return res.RowsAffected, res.Error
}

// Exec runs a raw statement and reports rows affected.
func (q *Query) Exec(sql string, args ...interface{}) (int64, error) {
	defer metrics.ObserveDBQuery("exec", time.Now())
	res := q.db.Exec(sql, args...)
	return res.RowsAffected, res.Error
}

// Transaction runs fn inside a database transaction bound to ctx. Returning
// an error (or panicking) from fn rolls everything back.
func (q *Query) Transaction(ctx context.Context, fn func(tx *Query) error) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Query{db: tx})
	})
}

// Pinned runs fn on one pooled connection held for the whole call, so
// session settings made inside fn can be undone on the same connection.
func (q *Query) Pinned(ctx context.Context, fn func(conn *Query) error) error {
	return q.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&Query{db: conn})
	})
}

// Cache is a read-through Find: a hit fills dest from CacheStore, a miss
// queries and stores the result for ttl.
func (q *Query) Cache(key string, ttl time.Duration, dest interface{}) error {
	ctx := q.db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if CacheStore != nil && CacheStore.Get(ctx, key, dest) {
		return nil
	}

	if err := q.Get(dest); err != nil {
		return err
	}

	if CacheStore != nil {
		_ = CacheStore.Set(ctx, key, dest, ttl)
	}
	return nil
}

// IsNotFound reports whether err means "no row".
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
