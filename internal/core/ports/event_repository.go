package ports

import (
	"context"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// EventRepository persists the case audit trail.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.CaseEvent) error
	// ListByCase returns the events of caseID, oldest first.
	ListByCase(ctx context.Context, caseID int64) ([]*domain.CaseEvent, error)
}
