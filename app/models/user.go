package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered customer or admin. Username mirrors Email; both are
// unique. Every user owns exactly one Cart, created in the same transaction.
type User struct {
	ID        uint      `gorm:"primaryKey"                       json:"id"`
	Username  string    `gorm:"size:254;uniqueIndex;not null"    json:"username"`
	Email     string    `gorm:"size:254;uniqueIndex;not null"    json:"email"`
	Password  string    `gorm:"size:255;not null"                json:"-"` // bcrypt hash, never serialised
	FirstName string    `gorm:"size:50"                          json:"first_name"`
	LastName  string    `gorm:"size:50"                          json:"last_name"`
	Phone     *string   `gorm:"size:20"                          json:"phone,omitempty"`
	IsActive  bool      `gorm:"not null;default:true"            json:"is_active"`
	Role      string    `gorm:"size:20;not null;default:user"    json:"role"`
	Cart      *Cart     `gorm:"constraint:OnDelete:CASCADE"      json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
