package controllers_test

import (
	"testing"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/testkit"
)

func TestScenarios(t *testing.T) {
	a := newAPI(t)
	_, userToken := a.user(models.RoleUser)
	_, adminToken := a.user(models.RoleAdmin)

	r := testkit.NewRunner(a.handler)
	r.Tokens["user"] = userToken
	r.Tokens["admin"] = adminToken
	r.RunDir(t, "testdata")
}
