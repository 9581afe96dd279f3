package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
)

// Postgres SQLSTATE codes that mean "try again".
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// MySQL / SQL Server error numbers that mean "try again".
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	mssqlDeadlockVictim  = 1205
	mssqlLockTimeout     = 1222

	mysqlDuplicateEntry   = 1062
	mssqlUniqueIndex      = 2601
	mssqlUniqueConstraint = 2627
)

// IsTransient reports whether err is a lock timeout, deadlock or
// serialization failure: the statement lost a race, the data is fine, and
// the caller may resubmit the whole transaction.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure, pgLockNotAvailable:
			return true
		}
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlock
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == mssqlDeadlockVictim || msErr.Number == mssqlLockTimeout
	}
	var msErrPtr *mssql.Error
	if errors.As(err, &msErrPtr) && msErrPtr != nil {
		return msErrPtr.Number == mssqlDeadlockVictim || msErrPtr.Number == mssqlLockTimeout
	}

	return false
}

// IsUniqueViolation reports whether err is a unique-constraint failure,
// e.g. two registrations racing for the same email.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == mssqlUniqueIndex || msErr.Number == mssqlUniqueConstraint
	}
	var msErrPtr *mssql.Error
	if errors.As(err, &msErrPtr) && msErrPtr != nil {
		return msErrPtr.Number == mssqlUniqueIndex || msErrPtr.Number == mssqlUniqueConstraint
	}

	return false
}

// TxSetupSQL returns the statements a checkout runs first inside its
// transaction: a bound on row-lock waits, and on SQL Server (which has no
// SELECT … FOR UPDATE) serializable isolation in place of row locks. SQLite
// gets nothing; it serialises writers at the file level.
func TxSetupSQL(dialect string, lockTimeout time.Duration) []string {
	var stmts []string

	switch dialect {
	case "postgres":
		if lockTimeout > 0 {
			stmts = append(stmts, fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeout.Milliseconds()))
		}
	case "mysql":
		if lockTimeout > 0 {
			secs := int64(math.Ceil(lockTimeout.Seconds()))
			stmts = append(stmts, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs))
		}
	case "sqlserver":
		if lockTimeout > 0 {
			stmts = append(stmts, fmt.Sprintf("SET LOCK_TIMEOUT %d", lockTimeout.Milliseconds()))
		}
		stmts = append(stmts, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	}
	return stmts
}

// TxResetSQL undoes the session-scoped part of TxSetupSQL. It must run on
// the same connection after commit or rollback, before the connection goes
// back to the pool. Postgres (SET LOCAL) and SQLite need nothing.
func TxResetSQL(dialect string, lockTimeout time.Duration) []string {
	var stmts []string

	switch dialect {
	case "mysql":
		if lockTimeout > 0 {
			stmts = append(stmts, "SET SESSION innodb_lock_wait_timeout = DEFAULT")
		}
	case "sqlserver":
		if lockTimeout > 0 {
			stmts = append(stmts, "SET LOCK_TIMEOUT -1")
		}
		stmts = append(stmts, "SET TRANSACTION ISOLATION LEVEL READ COMMITTED")
	}
	return stmts
}
