package migrations

import (
	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/migration"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260101000000_create_shop_schema", &CreateShopSchema{})
}

// CreateShopSchema creates every table in one AutoMigrate call. Foreign keys
// of has-one/has-many relations are only known once the parent model has
// been parsed, so parents and children must be migrated together.
type CreateShopSchema struct{}

func (m *CreateShopSchema) Up(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Cart{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

func (m *CreateShopSchema) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(
		&models.OrderItem{},
		&models.Order{},
		&models.CartItem{},
		&models.Product{},
		&models.Category{},
		&models.Cart{},
		&models.User{},
	)
}
