package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/pkg/validate"
	"github.com/stretchr/testify/assert"
)

type registerInput struct {
	Email                string `json:"email"                 validate:"required,email,max=254"`
	Password             string `json:"password"              validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation"`
	FirstName            string `json:"first_name"            validate:"required,max=50"`
	Phone                string `json:"phone"                 validate:"nullable,regex=^\\+?[0-9]+$,min=7,max=16"`
}

type cartInput struct {
	ProductID uint   `json:"productId" validate:"required"`
	Quantity  *int64 `json:"quantity"  validate:"nullable,gte=1"`
}

func qty(n int64) *int64 { return &n }

func TestValidRegisterInput(t *testing.T) {
	errs := validate.Struct(registerInput{
		Email:     "jane@example.com",
		Password:  "secret123",
		FirstName: "Jane",
	})
	assert.False(t, validate.HasErrors(errs), "%v", errs)
}

func TestRequiredFields(t *testing.T) {
	errs := validate.Struct(registerInput{})
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "first_name")
	assert.NotContains(t, errs, "phone")
}

func TestFirstFailingRuleWins(t *testing.T) {
	errs := validate.Struct(registerInput{Email: "nope", Password: "short", FirstName: "J"})
	assert.Equal(t, "The email must be a valid email address.", errs["email"])
	assert.Equal(t, "The password must be at least 8 characters.", errs["password"])
}

func TestRegexOnNullableField(t *testing.T) {
	in := registerInput{Email: "a@b.io", Password: "secret123", FirstName: "A", Phone: "call me"}
	assert.Contains(t, validate.Struct(in), "phone")

	in.Phone = "+4915112345678"
	assert.Empty(t, validate.Struct(in))
}

func TestPointerQuantity(t *testing.T) {
	assert.Empty(t, validate.Struct(cartInput{ProductID: 1}), "omitted quantity is allowed")
	assert.Empty(t, validate.Struct(cartInput{ProductID: 1, Quantity: qty(3)}))

	errs := validate.Struct(cartInput{ProductID: 1, Quantity: qty(0)})
	assert.Equal(t, "The quantity must be greater than or equal to 1.", errs["quantity"])

	errs = validate.Struct(cartInput{ProductID: 1, Quantity: qty(-2)})
	assert.Contains(t, errs, "quantity")
}

func TestInRule(t *testing.T) {
	type statusInput struct {
		Status string `json:"status" validate:"required,in=pending,shipped,delivered,max=20"`
	}
	assert.Empty(t, validate.Struct(statusInput{Status: "shipped"}))
	assert.Equal(t, "The selected status is invalid.", validate.Struct(statusInput{Status: "lost"})["status"])
}

func TestConfirmed(t *testing.T) {
	type in struct {
		Password             string `json:"password" validate:"required,confirmed"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	assert.Empty(t, validate.Struct(in{Password: "secret123", PasswordConfirmation: "secret123"}))
	assert.Contains(t, validate.Struct(in{Password: "secret123", PasswordConfirmation: "other"}), "password")
}

func TestUUIDAndNumericBounds(t *testing.T) {
	type in struct {
		OrderID string `json:"order_id" validate:"required,uuid"`
		Price   int64  `json:"price"    validate:"gte=0"`
		Stock   int64  `json:"stock"    validate:"lte=1000000"`
	}
	errs := validate.Struct(in{OrderID: "abc", Price: -1, Stock: 2000000})
	assert.Len(t, errs, 3)

	assert.Empty(t, validate.Struct(in{OrderID: "7c9e6679-7425-40de-944b-e07fc1f90ae7", Price: 0, Stock: 5}))
}

func TestRequiredPointerAcceptsExplicitZero(t *testing.T) {
	type stockInput struct {
		Stock *int64 `json:"stock" validate:"required,gte=0"`
	}
	assert.Empty(t, validate.Struct(stockInput{Stock: qty(0)}))
	assert.Contains(t, validate.Struct(stockInput{}), "stock")
	assert.Contains(t, validate.Struct(stockInput{Stock: qty(-1)}), "stock")
}

func TestBadRegexFailsInsteadOfPanicking(t *testing.T) {
	type in struct {
		Code string `json:"code" validate:"regex=[unclosed"`
	}
	assert.Equal(t, "The code format is invalid.", validate.Struct(in{Code: "x"})["code"])
}

func TestNonStructInput(t *testing.T) {
	assert.Empty(t, validate.Struct(42))
	assert.Empty(t, validate.Struct(&cartInput{ProductID: 3}))
}
