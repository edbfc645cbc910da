package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

type CaseService struct {
	repo      ports.CaseRepository
	publisher ports.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCaseService builds a CaseService. publisher may be nil, in which case
// no audit events are emitted.
func NewCaseService(repo ports.CaseRepository, publisher ports.EventPublisher, logger zerolog.Logger) *CaseService {
	return &CaseService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateCase always starts the case in status new.
func (s *CaseService) CreateCase(ctx context.Context, in ports.CreateCaseInput) (*domain.Case, error) {
	if !domain.ValidTitle(in.Title) {
		return nil, fmt.Errorf("%w: title is required and must be at most %d characters", domain.ErrInvalidInput, domain.MaxTitleLength)
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be one of: low medium high", domain.ErrInvalidInput)
	}
	if in.OwnerID <= 0 {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}

	now := s.now()
	c := &domain.Case{
		Title:       domain.NormalizeTitle(in.Title),
		Description: in.Description,
		Status:      domain.StatusNew,
		Priority:    priority,
		UserID:      in.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     in.DueDate,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error().Err(err).Msg("failed to create case")
		return nil, err
	}

	s.logger.Info().Int64("case_id", c.ID).Int64("owner_id", c.UserID).Msg("case created")
	s.publish(ctx, c, domain.EventCaseCreated)
	return c, nil
}

func (s *CaseService) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAllCases is intentionally unscoped: every authenticated caller sees
// every non-deleted case.
func (s *CaseService) ListAllCases(ctx context.Context, in ports.ListCasesInput) ([]*domain.Case, error) {
	filter := ports.ListCasesFilter{}
	if in.Status != "" {
		st := domain.CaseStatus(in.Status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
		}
		filter.Status = st
	}
	if in.Priority != "" {
		p := domain.CasePriority(in.Priority)
		if !p.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, in.Priority)
		}
		filter.Priority = p
	}
	return s.repo.List(ctx, filter)
}

func (s *CaseService) ListCasesForUser(ctx context.Context, userID int64) ([]*domain.Case, error) {
	if userID <= 0 {
		return []*domain.Case{}, nil
	}
	return s.repo.List(ctx, ports.ListCasesFilter{OwnerID: userID})
}

// UpdateCase applies patch when requestingUserID owns the case. The admin
// role does not bypass the ownership check.
func (s *CaseService) UpdateCase(ctx context.Context, caseID, requestingUserID int64, patch domain.CasePatch) (*domain.Case, error) {
	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.UserID != requestingUserID {
		return nil, domain.ErrForbidden
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := domain.NormalizeTitle(*patch.Title)
		patch.Title = &title
	}
	patch.Apply(c)
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("case_id", c.ID).Int64("user_id", requestingUserID).Msg("case updated")
	s.publish(ctx, c, domain.EventCaseUpdated)
	return c, nil
}

func validatePatch(p domain.CasePatch) error {
	if p.Title != nil && !domain.ValidTitle(*p.Title) {
		return fmt.Errorf("%w: title is required and must be at most %d characters", domain.ErrInvalidInput, domain.MaxTitleLength)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority must be one of: low medium high", domain.ErrInvalidInput)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *p.Status)
	}
	return nil
}

// SetStatus moves the case to CaseStatuses[statusIndex]. Any status may be
// reached from any other and no ownership check is made.
func (s *CaseService) SetStatus(ctx context.Context, caseID int64, statusIndex int) (*domain.Case, error) {
	status, ok := domain.StatusAt(statusIndex)
	if !ok {
		return nil, domain.ErrInvalidStatusIndex
	}

	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	c.Status = status
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("case_id", c.ID).Str("status", string(status)).Msg("case status changed")
	s.publish(ctx, c, domain.EventStatusChanged)
	return c, nil
}

// SoftDeleteCase hides the case permanently. There is no ownership check.
func (s *CaseService) SoftDeleteCase(ctx context.Context, caseID int64) error {
	c, err := s.repo.FindByID(ctx, caseID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, caseID, s.now()); err != nil {
		return err
	}

	s.logger.Info().Int64("case_id", caseID).Msg("case soft-deleted")
	s.publish(ctx, c, domain.EventCaseDeleted)
	return nil
}

func (s *CaseService) publish(ctx context.Context, c *domain.Case, kind domain.CaseEventKind) {
	if s.publisher == nil {
		return
	}
	var actor int64
	if id, ok := domain.IdentityFromContext(ctx); ok {
		actor = id.ID
	}
	s.publisher.Publish(domain.CaseEvent{
		CaseID:  c.ID,
		Kind:    kind,
		Status:  c.Status,
		ActorID: actor,
		At:      s.now(),
	})
}
