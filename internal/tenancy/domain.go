package tenancy

import (
	"errors"
	"time"
)

// ErrInvalidMembershipRole marks a tenant membership that stores a role which
// cannot be held within a tenant.
var ErrInvalidMembershipRole = errors.New("tenancy: invalid membership role")

// Tenant is an isolated customer organisation.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Access is the raw authorization state of a user, optionally within one
// tenant. It is what the role cache stores.
type Access struct {
	UserActive bool   `json:"user_active"`
	Superuser  bool   `json:"superuser"`
	Member     bool   `json:"member"`
	Role       string `json:"role,omitempty"`
}
