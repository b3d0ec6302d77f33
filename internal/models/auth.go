package models

type Role string

const (
	RoleUnauthenticated Role = "unauthenticated"
	RoleAuthenticated   Role = "authenticated"
	RoleAdmin           Role = "admin"
)

// Actor is the identity a request acts as. The zero value is an anonymous visitor.
type Actor struct {
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
}

func (a Actor) IsAuthenticated() bool {
	return a.UserID != nil && (a.Role == RoleAuthenticated || a.Role == RoleAdmin)
}

func (a Actor) IsAdmin() bool {
	return a.UserID != nil && a.Role == RoleAdmin
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
