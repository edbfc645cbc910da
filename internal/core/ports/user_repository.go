package ports

import (
	"context"
	"time"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// UserRepository defines the credential store.
type UserRepository interface {
	// Create inserts user and returns it with its assigned ID.
	// Returns domain.ErrDuplicateUsername when the username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	SetActive(ctx context.Context, id int64, active bool, at time.Time) error
	// Delete removes the user and, through the foreign key, all their cases.
	Delete(ctx context.Context, id int64) error
}

// TokenRevocationStore remembers revoked refresh tokens by JTI until they
// would have expired anyway.
type TokenRevocationStore interface {
	// Revoke marks jti revoked for ttl. It returns false when jti was
	// already revoked.
	Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
