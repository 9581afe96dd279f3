package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/cache"
	"github.com/shashiranjanraj/kashvi-shop/pkg/collection"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// CategoryInput is a category create/update.
type CategoryInput struct {
	Name        string
	Description string
}

// MaxUnitPrice is the highest product price, in minor units.
const MaxUnitPrice = 100_000_000_000

// ProductInput is a product create/update.
type ProductInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int64
	CategoryID  *uint
}

func (in ProductInput) patch() ProductPatch {
	category := in.CategoryID
	if category == nil {
		category = new(uint)
	}
	return ProductPatch{
		Name:        &in.Name,
		Description: &in.Description,
		Price:       &in.Price,
		Stock:       &in.Stock,
		CategoryID:  category,
	}
}

// ProductPatch is a partial product update; nil leaves a field as is and a
// CategoryID of 0 uncategorises the product.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int64
	CategoryID  *uint
}

// CategoryPatch is a partial category update; nil leaves a field as is.
type CategoryPatch struct {
	Name        *string
	Description *string
}

// CatalogService manages categories and products. Single products are
// served cache-aside; every write and every checkout forgets the affected
// keys.
type CatalogService struct {
	categories *repositories.CategoryRepository
	products   *repositories.ProductRepository
	cache      *cache.Store
	ttl        time.Duration
}

func NewCatalogService(db *orm.Query, store *cache.Store) *CatalogService {
	return &CatalogService{
		categories: repositories.NewCategoryRepository(db),
		products:   repositories.NewProductRepository(db),
		cache:      store,
		ttl:        config.ProductCacheTTL(),
	}
}

// ProductCacheKey is where ShowProduct caches product id.
func ProductCacheKey(id uint) string { return fmt.Sprintf("products:%d", id) }

// ─── Categories ──────────────────────────────────────────────────────────────

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.categories.All(ctx)
	if err != nil {
		return nil, wrapDB("categories: list", err)
	}
	return cats, nil
}

func (s *CatalogService) ShowCategory(ctx context.Context, id uint) (models.Category, error) {
	cat, err := s.categories.Find(ctx, id)
	if orm.IsNotFound(err) {
		return models.Category{}, &NotFoundError{Resource: "category", ID: id}
	}
	if err != nil {
		return models.Category{}, wrapDB("categories: show", err)
	}
	return cat, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	cat := models.Category{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(ctx, &cat); err != nil {
		return models.Category{}, categoryWriteError("categories: create", err)
	}
	s.forget(ctx, repositories.CategoriesCacheKey)
	return cat, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (models.Category, error) {
	return s.PatchCategory(ctx, id, CategoryPatch{Name: &in.Name, Description: &in.Description})
}

func (s *CatalogService) PatchCategory(ctx context.Context, id uint, p CategoryPatch) (models.Category, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return models.Category{}, &ValidationError{Field: "name", Message: "is required"}
	}
	cat, err := s.ShowCategory(ctx, id)
	if err != nil {
		return models.Category{}, err
	}
	if p.Name != nil {
		cat.Name = *p.Name
	}
	if p.Description != nil {
		cat.Description = *p.Description
	}
	if err := s.categories.Save(ctx, &cat); err != nil {
		return models.Category{}, categoryWriteError("categories: update", err)
	}
	s.forgetCategory(ctx, id)
	return cat, nil
}

// DeleteCategory removes the category; its products become uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	// collect first: after the delete the products no longer point here
	ids, err := s.products.IDsInCategory(ctx, id)
	if err != nil {
		return wrapDB("categories: delete", err)
	}
	deleted, err := s.categories.Delete(ctx, id)
	if err != nil {
		return wrapDB("categories: delete", err)
	}
	if !deleted {
		return &NotFoundError{Resource: "category", ID: id}
	}
	s.ForgetProducts(ctx, ids...)
	s.forget(ctx, repositories.CategoriesCacheKey)
	return nil
}

func (s *CatalogService) forgetCategory(ctx context.Context, id uint) {
	ids, err := s.products.IDsInCategory(ctx, id)
	if err != nil {
		logger.WithCtx(ctx).Warn("catalog: list category products", "category_id", id, "error", err)
	}
	s.ForgetProducts(ctx, ids...)
	s.forget(ctx, repositories.CategoriesCacheKey)
}

func categoryWriteError(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return &ValidationError{Field: "name", Message: "has already been taken"}
	}
	return wrapDB(op, err)
}

// ─── Products ────────────────────────────────────────────────────────────────

func (s *CatalogService) ListProducts(ctx context.Context, f repositories.ProductFilter, page, limit int) ([]models.Product, orm.Pagination, error) {
	products, p, err := s.products.Paginate(ctx, f, page, limit)
	if err != nil {
		return nil, orm.Pagination{}, wrapDB("products: list", err)
	}
	return products, p, nil
}

// ShowProduct reads through the cache; concurrent misses share one query.
func (s *CatalogService) ShowProduct(ctx context.Context, id uint) (models.Product, error) {
	var product models.Product
	err := s.cache.Remember(ctx, ProductCacheKey(id), s.ttl, &product, func(ctx context.Context) (any, error) {
		p, err := s.products.Find(ctx, id)
		if orm.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "product", ID: id}
		}
		if err != nil {
			return nil, wrapDB("products: show", err)
		}
		return p, nil
	})
	return product, err
}

func checkPrice(price int64) error {
	if price < 0 || price > MaxUnitPrice {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("must be between 0 and %d", int64(MaxUnitPrice))}
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := checkPrice(in.Price); err != nil {
		return models.Product{}, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return models.Product{}, err
	}
	product := models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}
	if err := s.products.Create(ctx, &product); err != nil {
		return models.Product{}, wrapDB("products: create", err)
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (models.Product, error) {
	return s.PatchProduct(ctx, id, in.patch())
}

func (s *CatalogService) PatchProduct(ctx context.Context, id uint, p ProductPatch) (models.Product, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return models.Product{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if p.Price != nil {
		if err := checkPrice(*p.Price); err != nil {
			return models.Product{}, err
		}
	}
	product, err := s.products.Find(ctx, id)
	if orm.IsNotFound(err) {
		return models.Product{}, &NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return models.Product{}, wrapDB("products: update", err)
	}

	if p.CategoryID != nil {
		product.CategoryID = nil
		if *p.CategoryID != 0 {
			if err := s.checkCategory(ctx, p.CategoryID); err != nil {
				return models.Product{}, err
			}
			product.CategoryID = p.CategoryID
		}
	}
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	product.Category = nil // Save would otherwise upsert the preloaded category

	if err := s.products.Save(ctx, &product); err != nil {
		return models.Product{}, wrapDB("products: update", err)
	}
	s.ForgetProducts(ctx, id)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return wrapDB("products: delete", err)
	}
	if !deleted {
		return &NotFoundError{Resource: "product", ID: id}
	}
	s.ForgetProducts(ctx, id)
	return nil
}

// ForgetProducts drops cached copies of the given products.
func (s *CatalogService) ForgetProducts(ctx context.Context, ids ...uint) {
	s.forget(ctx, collection.Map(ids, ProductCacheKey)...)
}

func (s *CatalogService) forget(ctx context.Context, keys ...string) {
	if err := s.cache.Forget(ctx, keys...); err != nil {
		logger.WithCtx(ctx).Warn("catalog: cache forget failed", "keys", keys, "error", err)
	}
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.Find(ctx, *id); err != nil {
		if orm.IsNotFound(err) {
			return &ValidationError{Field: "category_id", Message: "does not exist"}
		}
		return wrapDB("products: check category", err)
	}
	return nil
}
