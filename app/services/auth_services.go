package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/kashvi-shop/app/models"
	"github.com/shashiranjanraj/kashvi-shop/app/repositories"
	"github.com/shashiranjanraj/kashvi-shop/pkg/auth"
	"github.com/shashiranjanraj/kashvi-shop/pkg/database"
	"github.com/shashiranjanraj/kashvi-shop/pkg/logger"
	"github.com/shashiranjanraj/kashvi-shop/pkg/orm"
)

// RegisterInput is a new account. Role is set by trusted callers (the
// user:admin command, seeders); the HTTP API never binds it.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      string
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    models.User `json:"user"`
}

type AuthService struct {
	db    *orm.Query
	users *repositories.UserRepository
	carts *repositories.CartRepository
}

func NewAuthService(db *orm.Query) *AuthService {
	return &AuthService{
		db:    db,
		users: repositories.NewUserRepository(db),
		carts: repositories.NewCartRepository(db),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the user and their cart in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	email := normalizeEmail(in.Email)
	if in.Password == "" {
		return models.User{}, &ValidationError{Field: "password", Message: "is required"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	user := models.User{
		Username:  email,
		Email:     email,
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		IsActive:  true,
		Role:      role,
	}

	err = s.db.Transaction(ctx, func(tx *orm.Query) error {
		users := s.users.WithTx(tx)
		taken, err := users.EmailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}
		if err := users.Create(ctx, &user); err != nil {
			return err
		}
		return s.carts.WithTx(tx).Create(ctx, &models.Cart{UserID: user.ID})
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrEmailTaken), database.IsUniqueViolation(err):
		return models.User{}, ErrEmailTaken
	default:
		return models.User{}, wrapDB("register", err)
	}

	logger.WithCtx(ctx).Info("auth: user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks credentials and issues an access/refresh pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if orm.IsNotFound(err) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, wrapDB("login", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return TokenPair{}, ErrInactiveUser
	}

	access, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh, User: user}, nil
}

// Refresh exchanges a refresh token for a new access token. The user is
// reloaded so a disabled account or changed role takes effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if orm.IsNotFound(err) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", wrapDB("refresh", err)
	}
	if !user.IsActive {
		return "", ErrInactiveUser
	}
	return auth.GenerateToken(user.ID, user.Role)
}
