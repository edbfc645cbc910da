package ports

import (
	"context"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// RegisterInput carries the fields accepted on registration.
type RegisterInput struct {
	Username string
	Password string
	Role     string // empty defaults to agent
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	IssueSession(ctx context.Context, user *domain.User) (*domain.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
	RevokeSession(ctx context.Context, refreshToken string) error
	CurrentIdentity(ctx context.Context, accessToken string) (*domain.Identity, error)

	SetActive(ctx context.Context, userID int64, active bool) (*domain.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}
