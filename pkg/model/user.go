package model

// UserRole is the role reported by the server at login.
type UserRole string

const (
	// RoleUser is a regular shopper.
	RoleUser UserRole = "user"
	// RoleAdmin manages the catalog and orders.
	RoleAdmin UserRole = "admin"
)

// Profile is the denormalized user info cached next to the token.
// It is for display only; the server stays authoritative.
type Profile struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
