package auth

import "time"

// User is an account as stored in the users table. Tenant roles live in
// user_tenants and are resolved by the tenancy package.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName falls back to the email for accounts without a name.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// SessionRecord describes the sessions row written on login.
type SessionRecord struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
