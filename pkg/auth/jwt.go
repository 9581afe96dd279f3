// Package auth issues and verifies the shop's JWTs and hashes passwords.
//
// Access and refresh tokens share one HS256 secret (JWT_SECRET) and differ
// by their "typ" claim, so one can never stand in for the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shashiranjanraj/kashvi-shop/config"
)

// Issuer is written to and required in every token.
const Issuer = "kashvi-shop"

type tokenKind string

const (
	kindAccess  tokenKind = "access"
	kindRefresh tokenKind = "refresh"
)

func (k tokenKind) ttl() time.Duration {
	if k == kindRefresh {
		return config.JWTRefreshTTL()
	}
	return config.JWTAccessTTL()
}

// ErrWrongTokenType is returned for a refresh token where an access token
// is expected, and the other way round.
var ErrWrongTokenType = errors.New("auth: wrong token type")

// Claims is the token payload. ID (jti) is unique per token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

func issue(userID uint, role string, kind tokenKind) (string, error) {
	now := time.Now()
	c := Claims{
		UserID: userID,
		Role:   role,
		Type:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(kind.ttl())),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(config.JWTSecret()))
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return signed, nil
}

// GenerateToken issues an access token.
func GenerateToken(userID uint, role string) (string, error) {
	return issue(userID, role, kindAccess)
}

// GenerateRefreshToken issues a refresh token; only Refresh accepts it.
func GenerateRefreshToken(userID uint, role string) (string, error) {
	return issue(userID, role, kindRefresh)
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(Issuer),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(5*time.Second),
)

func verify(raw string, want tokenKind) (*Claims, error) {
	c := new(Claims)
	_, err := parser.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return []byte(config.JWTSecret()), nil
	})
	if err != nil {
		return nil, err
	}
	if tokenKind(c.Type) != want {
		return nil, ErrWrongTokenType
	}
	return c, nil
}

func ValidateToken(raw string) (*Claims, error) { return verify(raw, kindAccess) }

func ValidateRefreshToken(raw string) (*Claims, error) { return verify(raw, kindRefresh) }

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
