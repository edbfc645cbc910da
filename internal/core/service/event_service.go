package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

type eventService struct {
	caseRepo  ports.CaseRepository
	eventRepo ports.EventRepository
	log       zerolog.Logger
}

// NewEventService returns an EventService implementation.
func NewEventService(
	caseRepo ports.CaseRepository,
	eventRepo ports.EventRepository,
	log zerolog.Logger,
) ports.EventService {
	return &eventService{
		caseRepo:  caseRepo,
		eventRepo: eventRepo,
		log:       log,
	}
}

// Record persists a single audit event.
func (s *eventService) Record(ctx context.Context, ev domain.CaseEvent) error {
	if ev.CaseID <= 0 {
		return fmt.Errorf("record event: %w: case id is required", domain.ErrInvalidInput)
	}
	if err := s.eventRepo.InsertEvent(ctx, &ev); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	s.log.Debug().
		Int64("case_id", ev.CaseID).
		Str("kind", string(ev.Kind)).
		Str("status", string(ev.Status)).
		Msg("case event recorded")
	return nil
}

// History returns the audit trail of a visible case. Deleted cases report
// domain.ErrCaseNotFound like every other read.
func (s *eventService) History(ctx context.Context, caseID int64) ([]*domain.CaseEvent, error) {
	if _, err := s.caseRepo.FindByID(ctx, caseID); err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("case history: %w", err)
	}
	return events, nil
}
