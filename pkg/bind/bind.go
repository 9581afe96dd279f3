// Package bind decodes a JSON request body into an input struct and runs its
// validate tags.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/validate"
)

var ErrEmptyBody = errors.New("request body is empty")

// TooLargeError means the body exceeded MAX_BODY_BYTES.
type TooLargeError struct{ Limit int64 }

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("request body too large (max %d bytes)", e.Limit)
}

// FieldErrors maps a JSON field name to its first failed rule.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	return fmt.Sprintf("%d invalid field(s)", len(e))
}

func limit() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", ""), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// JSON decodes exactly one JSON value from r into dest. It returns
// ErrEmptyBody, *TooLargeError, FieldErrors or a decode error.
func JSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit())

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &tooLarge):
			return &TooLargeError{Limit: tooLarge.Limit}
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: unexpected data after the body")
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return FieldErrors(errs)
	}
	return nil
}
