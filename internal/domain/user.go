package domain

// Roles carried in access tokens.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// UserContext is the authenticated operator injected into admin request handlers.
type UserContext struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the operator may use admin endpoints.
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
