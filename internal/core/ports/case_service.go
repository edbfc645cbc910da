package ports

import (
	"context"
	"time"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// CreateCaseInput carries all data needed to create a new case.
type CreateCaseInput struct {
	OwnerID     int64
	Title       string
	Description *string
	Priority    domain.CasePriority // empty defaults to medium
	DueDate     *time.Time
}

// ListCasesInput carries the optional filters of the open listing.
type ListCasesInput struct {
	Status   string
	Priority string
}

// CaseService defines use-case operations for cases.
type CaseService interface {
	CreateCase(ctx context.Context, in CreateCaseInput) (*domain.Case, error)
	GetCase(ctx context.Context, id int64) (*domain.Case, error)
	ListAllCases(ctx context.Context, in ListCasesInput) ([]*domain.Case, error)
	ListCasesForUser(ctx context.Context, userID int64) ([]*domain.Case, error)
	UpdateCase(ctx context.Context, caseID, requestingUserID int64, patch domain.CasePatch) (*domain.Case, error)
	SetStatus(ctx context.Context, caseID int64, statusIndex int) (*domain.Case, error)
	SoftDeleteCase(ctx context.Context, caseID int64) error
}
