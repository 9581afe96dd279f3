package services

import (
	"errors"
	"fmt"

	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
)

var (
	// ErrEmptyCart: checkout of a cart with no lines (or a user without a cart).
	ErrEmptyCart = errors.New("cart is empty")

	// ErrStockConflict: the guarded stock UPDATE touched fewer rows than it
	// locked. Only reachable when row locks are not honoured; always wrapped
	// in a *TransientError.
	ErrStockConflict = errors.New("stock changed during checkout")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidTransition  = errors.New("invalid order status transition")

	// Class sentinels matched with errors.Is against the typed errors below.
	ErrNotFound   = errors.New("not found")
	ErrTransient  = errors.New("temporary failure, retry the request")
	ErrValidation = errors.New("validation failed")
)

// InsufficientStockError names the first product whose stock could not
// cover the requested quantity.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): available %d, requested %d",
		e.ProductID, e.ProductName, e.Available, e.Requested)
}

// NotFoundError reports a missing product, category, order or cart line.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransientError wraps a lock timeout, deadlock, serialization failure or
// expired deadline. Nothing was committed; the caller may retry as-is.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v (retry)", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool { return target == ErrTransient }

// ValidationError is a well-formed request with an unacceptable value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// wrapDB classifies a storage error: retryable ones become *TransientError,
// everything else is wrapped with op for context.
func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsTransient(err) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
