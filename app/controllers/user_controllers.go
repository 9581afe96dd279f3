package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
)

type profileInput struct {
	FirstName *string `json:"first_name" validate:"nullable,max=50"`
	LastName  *string `json:"last_name"  validate:"nullable,max=50"`
	Phone     *string `json:"phone"      validate:"nullable,regex=^\\+?[0-9]+$,min=7,max=16"`
}

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

func (ctl *UserController) Show(c *ctx.Context) {
	user, err := ctl.users.Profile(c.Context(), c.MustUserID())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}

// Update changes the caller's name and phone. An empty phone clears it.
func (ctl *UserController) Update(c *ctx.Context) {
	var in profileInput
	if !c.BindJSON(&in) {
		return
	}

	user, err := ctl.users.UpdateProfile(c.Context(), c.MustUserID(), services.ProfileInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(user)
}
