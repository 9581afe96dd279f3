// Package database opens the gorm connection for the configured driver
// and classifies driver errors (see errors.go).
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
)

// DB is set by Connect for the CLI and the server; tests use Open.
var DB *gorm.DB

// Connect opens the configured database, sizes its pool and pings it.
func Connect() error {
	db, err := Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.DBMaxOpenConns())
	sqlDB.SetMaxIdleConns(config.DBMaxIdleConns())
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("database: ping %s: %w", config.DatabaseDriver(), err)
	}

	DB = db
	return nil
}

// Open builds a *gorm.DB without touching DB.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: QueryLogger{Slow: config.DBSlowQuery()},
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}
	return db, nil
}

// Ping checks the connection behind db within ctx.
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database: not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(SQLiteDSN(dsn, config.LockTimeout())), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	}
	return nil, fmt.Errorf("database: unsupported DB_DRIVER %q (sqlite, postgres, mysql, sqlserver)", driver)
}

// SQLiteDSN makes a pooled SQLite file behave under concurrent writers:
// _txlock=immediate takes the write lock at BEGIN, and _busy_timeout makes a
// second writer wait for it instead of failing with "database is locked".
// Options already in dsn are kept.
func SQLiteDSN(dsn string, busy time.Duration) string {
	if busy <= 0 {
		busy = 5 * time.Second
	}
	var add []string
	if !strings.Contains(dsn, "_txlock=") {
		add = append(add, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "_timeout=") {
		add = append(add, fmt.Sprintf("_busy_timeout=%d", busy.Milliseconds()))
	}
	if len(add) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(add, "&")
}

// QueryLogger sends gorm's output through pkg/logger so query lines carry
// the request id. Only slow and failed statements are logged; a missing row
// is not a failure.
type QueryLogger struct {
	Slow time.Duration
}

func (l QueryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (QueryLogger) Info(ctx context.Context, msg string, args ...any) {
	logger.WithCtx(ctx).Info("gorm: " + fmt.Sprintf(msg, args...))
}

func (QueryLogger) Warn(ctx context.Context, msg string, args ...any) {
	logger.WithCtx(ctx).Warn("gorm: " + fmt.Sprintf(msg, args...))
}

func (QueryLogger) Error(ctx context.Context, msg string, args ...any) {
	logger.WithCtx(ctx).Error("gorm: " + fmt.Sprintf(msg, args...))
}

func (l QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, context.Canceled)
	slow := l.Slow > 0 && elapsed > l.Slow
	if !failed && !slow {
		return
	}

	sql, rows := fc()
	log := logger.WithCtx(ctx).With("sql", sql, "rows", rows, "duration_ms", elapsed.Milliseconds())
	if failed {
		log.Warn("database: query failed", "error", err)
		return
	}
	log.Warn("database: slow query", "threshold", l.Slow.String())
}
