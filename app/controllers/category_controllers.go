package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
)

type categoryInput struct {
	Name        string `json:"name"        validate:"required,max=120"`
	Description string `json:"description" validate:"nullable,max=255"`
}

type categoryPatch struct {
	Name        *string `json:"name"        validate:"nullable,max=120"`
	Description *string `json:"description" validate:"nullable,max=255"`
}

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(catalog *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: catalog}
}

func (ctl *CategoryController) Index(c *ctx.Context) {
	cats, err := ctl.catalog.ListCategories(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cats)
}

func (ctl *CategoryController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	cat, err := ctl.catalog.ShowCategory(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cat)
}

func (ctl *CategoryController) Store(c *ctx.Context) {
	var in categoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := ctl.catalog.CreateCategory(c.Context(), services.CategoryInput(in))
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(cat)
}

func (ctl *CategoryController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	var in categoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := ctl.catalog.UpdateCategory(c.Context(), id, services.CategoryInput(in))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cat)
}

func (ctl *CategoryController) Patch(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	var in categoryPatch
	if !c.BindJSON(&in) {
		return
	}
	cat, err := ctl.catalog.PatchCategory(c.Context(), id, services.CategoryPatch(in))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cat)
}

func (ctl *CategoryController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	if err := ctl.catalog.DeleteCategory(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}
