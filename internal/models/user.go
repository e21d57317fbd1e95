package models

import (
	"strings"

	"gorm.io/gorm"
)

// User represents a person who can sign in.
type User struct {
	Base
	Name  string `json:"name" gorm:"not null"`
	Email string `json:"email" gorm:"uniqueIndex;not null"`
	// PasswordHash is nil for identities that only sign in through a provider.
	PasswordHash *string `json:"-"`
	Image        string  `json:"image"`
	Provider     string  `json:"provider,omitempty"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// BeforeSave keeps emails in canonical form so the unique index is case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserSummary is the public projection of a user embedded in other responses.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Summary projects u.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}
