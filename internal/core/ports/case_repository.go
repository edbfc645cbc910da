package ports

import (
	"context"
	"time"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// ListCasesFilter carries the query parameters for listing cases.
// Soft-deleted cases are always excluded.
type ListCasesFilter struct {
	OwnerID  int64               // 0 = any owner
	Status   domain.CaseStatus   // optional
	Priority domain.CasePriority // optional
}

// CaseRepository defines persistence operations for cases. Every read and
// write ignores soft-deleted rows and reports them as domain.ErrCaseNotFound.
type CaseRepository interface {
	// Create inserts c and sets c.ID.
	Create(ctx context.Context, c *domain.Case) error
	FindByID(ctx context.Context, id int64) (*domain.Case, error)
	List(ctx context.Context, filter ListCasesFilter) ([]*domain.Case, error)
	// Update overwrites every mutable column of c.
	Update(ctx context.Context, c *domain.Case) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}
