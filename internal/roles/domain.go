package roles

import "github.com/workforce-hr/workforce/internal/rbac"

// Entry describes one role of the catalogue from the caller's point of view.
type Entry struct {
	Role        rbac.Role `json:"role"`
	Name        string    `json:"name"`
	Rank        int       `json:"rank"`
	Permissions int       `json:"permission_count"`
	Members     int       `json:"members"`
	Assignable  bool      `json:"assignable"`
}
