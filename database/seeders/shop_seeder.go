package seeders

import (
	"context"
	"errors"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/services"
	"github.com/shashiranjanraj/kashvi-shop/config"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
	"gorm.io/gorm"
)

func init() {
	Register("catalog", SeedCatalog)
	Register("admin", SeedAdmin)
}

type demoProduct struct {
	name, description string
	price, stock      int64
}

var demoCatalog = []struct {
	category models.Category
	products []demoProduct
}{
	{
		category: models.Category{Name: "Lighting", Description: "Lamps and bulbs"},
		products: []demoProduct{
			{"Desk Lamp", "Adjustable LED desk lamp", 2999, 40},
			{"Floor Lamp", "Linen shade, oak base", 8900, 12},
		},
	},
	{
		category: models.Category{Name: "Furniture", Description: "Desks, chairs and shelving"},
		products: []demoProduct{
			{"Standing Desk", "Electric, 140x70cm", 45000, 5},
			{"Office Chair", "Mesh back, lumbar support", 21900, 8},
			{"Bookshelf", "Five shelves, walnut", 12500, 0},
		},
	},
}

// SeedCatalog inserts the demo categories and products. Rows that already
// exist by name are left alone.
func SeedCatalog(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, c := range demoCatalog {
			cat := c.category
			if err := tx.Where(models.Category{Name: cat.Name}).FirstOrCreate(&cat).Error; err != nil {
				return err
			}
			for _, p := range c.products {
				row := models.Product{
					Name:        p.name,
					Description: p.description,
					Price:       p.price,
					Stock:       p.stock,
					CategoryID:  &cat.ID,
				}
				if err := tx.Where(models.Product{Name: p.name}).FirstOrCreate(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// SeedAdmin creates the ADMIN_EMAIL account (with a cart) when missing.
func SeedAdmin(db *gorm.DB) error {
	_, err := services.NewAuthService(orm.New(db)).Register(context.Background(), services.RegisterInput{
		Email:     config.Get("ADMIN_EMAIL", "admin@example.com"),
		Password:  config.Get("ADMIN_PASSWORD", "change-me"),
		FirstName: "Shop",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	})
	if errors.Is(err, services.ErrEmailTaken) {
		return nil
	}
	return err
}
