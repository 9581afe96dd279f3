package services

import (
	"context"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// ProfileInput carries the editable profile fields; nil leaves a field as is.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(db *orm.Query) *UserService {
	return &UserService{users: repositories.NewUserRepository(db)}
}

func (s *UserService) Profile(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if orm.IsNotFound(err) {
		return models.User{}, &NotFoundError{Resource: "user", ID: userID}
	}
	if err != nil {
		return models.User{}, wrapDB("profile", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Phone != nil {
		if *in.Phone == "" {
			user.Phone = nil
		} else {
			user.Phone = in.Phone
		}
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return models.User{}, wrapDB("profile: update", err)
	}
	return user, nil
}

// SetActive enables or disables an account.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = active
	return wrapDB("user: set active", s.users.Update(ctx, &user))
}

// Promote makes the user with email an admin.
func (s *UserService) Promote(ctx context.Context, email string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if orm.IsNotFound(err) {
		return models.User{}, &NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return models.User{}, wrapDB("user: promote", err)
	}
	user.Role = models.RoleAdmin
	if err := s.users.Update(ctx, &user); err != nil {
		return models.User{}, wrapDB("user: promote", err)
	}
	return user, nil
}
