package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avillia/receipt-service/internal/auth"
)

// User represents an account that can log in with a password
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Login        string    `json:"login" db:"login"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(login, name, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Login:        login,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// Role is a named bundle of accesses assigned to users
type Role struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// NewRole creates a new Role instance
func NewRole(name string) *Role {
	return &Role{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Access is a single grant held by a role
type Access struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RoleID        uuid.UUID `json:"role_id" db:"role_id"`
	AllowedMethod string    `json:"allowed_method" db:"allowed_method"`
	RouteURL      string    `json:"route_url" db:"route_url"`
}

// TableName returns the table name for the Access model
func (Access) TableName() string {
	return "accesses"
}

// NewAccess creates an access row for a grant
func NewAccess(roleID uuid.UUID, grant auth.Grant) *Access {
	return &Access{
		ID:            uuid.New(),
		RoleID:        roleID,
		AllowedMethod: string(grant.Method),
		RouteURL:      grant.Resource,
	}
}

// Grant returns the serialized "METHOD@resource" form
func (a *Access) Grant() string {
	return auth.Requirement(a.AllowedMethod, a.RouteURL)
}
