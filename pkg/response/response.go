// Package response writes the JSON envelope shared by every endpoint:
//
//	{"status":400,"error":"empty_cart","message":"cart is empty"}
//	{"status":200,"data":{...}}
//
// Every error envelope carries a machine-readable code in "error"; plain
// Error calls derive it from the status.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

type Envelope struct {
	Status  int    `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Page is the data of a paginated response.
type Page struct {
	Items      any            `json:"items"`
	Pagination orm.Pagination `json:"pagination"`
}

// Write sends body with its own status.
func Write(w http.ResponseWriter, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)
	_ = json.NewEncoder(w).Encode(body)
}

func Success(w http.ResponseWriter, data any) {
	Write(w, Envelope{Status: http.StatusOK, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	Write(w, Envelope{Status: http.StatusCreated, Data: data})
}

func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

func Paginated(w http.ResponseWriter, items any, p orm.Pagination) {
	Success(w, Page{Items: items, Pagination: p})
}

// Error sends an error envelope whose code is the snake_cased status text,
// e.g. "too_many_requests".
func Error(w http.ResponseWriter, status int, message string) {
	Fail(w, status, Code(status), message, nil)
}

// Fail sends an error envelope with an explicit code and optional details,
// e.g. the product id and quantities of a stock failure.
func Fail(w http.ResponseWriter, status int, code, message string, details any) {
	Write(w, Envelope{Status: status, Error: code, Message: message, Errors: details})
}

// ValidationError sends a 400 with a field-level error map.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Fail(w, http.StatusBadRequest, "validation", "Validation failed", errs)
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Forbidden")
}

// Code turns a status into the default error code.
func Code(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
