package entity

import (
	"strings"
	"time"
)

const (
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"

	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User is an account in the directory. Email is unique and stored lower-cased.
type User struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	Email        string    `json:"email" db:"email" bson:"email"`
	Name         string    `json:"name" db:"name" bson:"name"`
	PhotoURL     string    `json:"photoURL" db:"photo_url" bson:"photo_url"`
	Role         string    `json:"role" db:"role" bson:"role"`       // user / creator / admin
	Status       string    `json:"status" db:"status" bson:"status"` // active / blocked
	PasswordHash string    `json:"-" db:"password_hash" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

func ValidRole(r string) bool {
	return r == RoleUser || r == RoleCreator || r == RoleAdmin
}

func ValidStatus(s string) bool {
	return s == StatusActive || s == StatusBlocked
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
