package repositories

import (
	"context"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// profileColumns are the only columns Update writes. The password hash and
// email change through their own flows.
var profileColumns = []string{"first_name", "last_name", "phone", "is_active", "role", "updated_at"}

type UserRepository struct {
	db *orm.Query
}

func NewUserRepository(db *orm.Query) *UserRepository { return &UserRepository{db: db} }

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *orm.Query) *UserRepository { return &UserRepository{db: tx} }

func (r *UserRepository) users(ctx context.Context) *orm.Query {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *UserRepository) first(ctx context.Context, column string, v any) (models.User, error) {
	var u models.User
	err := r.users(ctx).Where(column+" = ?", v).First(&u)
	return u, err
}

// FindByEmail expects email already normalized (see services.normalizeEmail).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.first(ctx, "email", email)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	return r.first(ctx, "id", id)
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	n, err := r.users(ctx).Where("email = ?", email).Count()
	return n > 0, err
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u)
}

// Update writes the profile columns of u, zero values included.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	_, err := r.users(ctx).Where("id = ?", u.ID).Select(profileColumns).Updates(u)
	return err
}
