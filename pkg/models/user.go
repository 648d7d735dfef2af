// Package models contains shared data models used across the codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an admin user of the support platform. Role checks happen
// upstream at the auth boundary; downstream code trusts IsAdmin.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	FullName  string    `db:"full_name"  json:"full_name"`
	IsAdmin   bool      `db:"is_admin"   json:"is_admin"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
