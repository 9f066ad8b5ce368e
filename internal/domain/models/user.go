// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminUser is an account that can sign in to the content console.
//
// Username is what the user types to log in; UsernameCI is the folded
// form used for case/diacritic-insensitive matching.
type AdminUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	UsernameCI   string             `bson:"username_ci" json:"-"`
	PasswordHash string             `bson:"password_hash" json:"-"` // bcrypt hash (never in JSON)
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	Role         string             `bson:"role" json:"role"`
	FirstName    string             `bson:"first_name,omitempty" json:"firstName,omitempty"`
	LastName     string             `bson:"last_name,omitempty" json:"lastName,omitempty"`
	PhoneNumber  string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// User roles
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleAdmin,
		RoleEditor,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
