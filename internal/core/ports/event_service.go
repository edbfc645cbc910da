package ports

import (
	"context"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

// EventPublisher hands audit events off for asynchronous recording.
// Publish must not block the caller on persistence.
type EventPublisher interface {
	Publish(event domain.CaseEvent)
}

// EventService records and reads the case audit trail.
type EventService interface {
	Record(ctx context.Context, event domain.CaseEvent) error
	History(ctx context.Context, caseID int64) ([]*domain.CaseEvent, error)
}
