package domain

import (
	"context"
	"time"
)

const (
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// MaxUsernameLength bounds usernames, counted in runes.
const MaxUsernameLength = 150

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	return role == RoleAgent || role == RoleAdmin
}

// User models an authenticated actor in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the public view of u.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Identity is what a valid access token resolves to.
type Identity struct {
	ID       int64
	Username string
	Role     string
}

// Session is an access/refresh token pair. RefreshToken is empty when a
// refresh did not rotate the refresh token.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type identityKey struct{}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
