package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// CategoriesCacheKey holds the full category list; writes must forget it.
const CategoriesCacheKey = "categories:all"

const categoriesTTL = 10 * time.Minute

type CategoryRepository struct {
	db *orm.Query
}

func NewCategoryRepository(db *orm.Query) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) All(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Model(&models.Category{}).Order("name").Cache(CategoriesCacheKey, categoriesTTL, &categories)
	return categories, err
}

func (r *CategoryRepository) Find(ctx context.Context, id uint) (models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).First(&category)
	return category, err
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category)
}

func (r *CategoryRepository) Save(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category)
}

// Delete removes the category; its products keep existing uncategorised.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) (bool, error) {
	n, err := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	return n > 0, err
}

// ProductFilter narrows ProductRepository.Paginate.
type ProductFilter struct {
	CategoryID uint
	Search     string
}

type ProductRepository struct {
	db *orm.Query
}

func NewProductRepository(db *orm.Query) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *ProductRepository) WithTx(tx *orm.Query) *ProductRepository {
	return &ProductRepository{db: tx}
}

func (r *ProductRepository) Paginate(ctx context.Context, f ProductFilter, page, limit int) ([]models.Product, orm.Pagination, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Category").Order("id")
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.Search != "" {
		q = q.Where("name LIKE ?", "%"+f.Search+"%")
	}

	var products []models.Product
	p, err := q.GetWithPagination(&products, page, limit)
	return products, p, err
}

func (r *ProductRepository) Find(ctx context.Context, id uint) (models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Category").Where("id = ?", id).First(&product)
	return product, err
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product)
}

func (r *ProductRepository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product)
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) (bool, error) {
	n, err := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	return n > 0, err
}

// IDsInCategory lists the ids of the category's products.
func (r *ProductRepository) IDsInCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", categoryID).
		Order("id").
		Select("id").
		Get(&ids)
	return ids, err
}

// LockForCheckout loads and row-locks the given products in ascending id
// order. Every checkout locks in the same order, so two checkouts that share
// products queue instead of deadlocking.
func (r *ProductRepository) LockForCheckout(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id IN ?", ids).
		Order("id").
		ForUpdate().
		Get(&products)
	return products, err
}

// DecrementStock subtracts qty[productID] from each product in a single
// statement:
//
//	UPDATE products
//	SET stock = CASE id WHEN ? THEN stock - ? … END, updated_at = ?
//	WHERE id IN (…) AND CASE id WHEN ? THEN stock - ? … END >= 0
//
// Every placeholder sits next to the id or stock column, so Postgres types
// it from that column instead of resolving it as text. A row whose stock
// would go negative is not updated. It returns how many rows changed;
// callers compare that with len(qty).
func (r *ProductRepository) DecrementStock(ctx context.Context, qty map[uint]int64) (int64, error) {
	if len(qty) == 0 {
		return 0, nil
	}

	ids := make([]uint, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		remaining strings.Builder
		pair      = make([]interface{}, 0, 2*len(ids))
	)
	remaining.WriteString("CASE id")
	for _, id := range ids {
		remaining.WriteString(" WHEN ? THEN stock - ?")
		pair = append(pair, id, qty[id])
	}
	remaining.WriteString(" END")

	args := make([]interface{}, 0, 4*len(ids)+2)
	args = append(args, pair...)
	args = append(args, time.Now(), ids)
	args = append(args, pair...)

	sql := "UPDATE products SET stock = " + remaining.String() + ", updated_at = ? " +
		"WHERE id IN ? AND " + remaining.String() + " >= 0"

	return r.db.WithContext(ctx).Exec(sql, args...)
}
