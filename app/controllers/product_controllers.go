package controllers

import (
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/pkg/ctx"
)

type productInput struct {
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description"`
	Price       *int64 `json:"price"       validate:"required,gte=0,lte=100000000000"`
	Stock       *int64 `json:"stock"       validate:"required,gte=0"`
	CategoryID  *uint  `json:"category_id" validate:"nullable,gt=0"`
}

func (in productInput) service() services.ProductInput {
	return services.ProductInput{
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Stock:       *in.Stock,
		CategoryID:  in.CategoryID,
	}
}

// productPatch is the PATCH body; absent fields are left unchanged and a
// category_id of 0 removes the category.
type productPatch struct {
	Name        *string `json:"name"        validate:"nullable,max=255"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"       validate:"nullable,gte=0,lte=100000000000"`
	Stock       *int64  `json:"stock"       validate:"nullable,gte=0"`
	CategoryID  *uint   `json:"category_id" validate:"nullable,gte=0"`
}

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index handles GET /api/products?category=&q=&page=&limit=.
func (ctl *ProductController) Index(c *ctx.Context) {
	filter := repositories.ProductFilter{
		CategoryID: uint(max(c.QueryInt("category", 0), 0)),
		Search:     c.Query("q"),
	}
	p, limit := page(c)

	products, meta, err := ctl.catalog.ListProducts(c.Context(), filter, p, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(products, meta)
}

func (ctl *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	product, err := ctl.catalog.ShowProduct(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(product)
}

func (ctl *ProductController) Store(c *ctx.Context) {
	var in productInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := ctl.catalog.CreateProduct(c.Context(), in.service())
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(product)
}

func (ctl *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	var in productInput
	if !c.BindJSON(&in) {
		return
	}
	product, err := ctl.catalog.UpdateProduct(c.Context(), id, in.service())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(product)
}

func (ctl *ProductController) Patch(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	var in productPatch
	if !c.BindJSON(&in) {
		return
	}
	product, err := ctl.catalog.PatchProduct(c.Context(), id, services.ProductPatch(in))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(product)
}

func (ctl *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
		return
	}
	if err := ctl.catalog.DeleteProduct(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}
