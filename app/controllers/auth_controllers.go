package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
)

type registerInput struct {
	Email     string  `json:"email"      validate:"required,email,max=254"`
	Password  string  `json:"password"   validate:"required,min=8"`
	FirstName string  `json:"first_name" validate:"nullable,max=50"`
	LastName  string  `json:"last_name"  validate:"nullable,max=50"`
	Phone     *string `json:"phone"      validate:"nullable,regex=^\\+?[0-9]+$,min=7,max=16"`
}

type loginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshInput struct {
	Refresh string `json:"refresh" validate:"required"`
}

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Register handles POST /api/auth/register.
func (ctl *AuthController) Register(c *ctx.Context) {
	var in registerInput
	if !c.BindJSON(&in) {
		return
	}

	user, err := ctl.auth.Register(c.Context(), services.RegisterInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(user)
}

// Login handles POST /api/auth/login.
func (ctl *AuthController) Login(c *ctx.Context) {
	var in loginInput
	if !c.BindJSON(&in) {
		return
	}

	pair, err := ctl.auth.Login(c.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(pair)
}

// Refresh handles POST /api/auth/refresh.
func (ctl *AuthController) Refresh(c *ctx.Context) {
	var in refreshInput
	if !c.BindJSON(&in) {
		return
	}

	access, err := ctl.auth.Refresh(c.Context(), in.Refresh)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"access": access})
}
