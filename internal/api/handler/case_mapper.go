package handler

import (
	"time"

	"github.com/caseperl/caseperl-api/internal/core/domain"
)

func toCaseResponse(c *domain.Case) caseResponse {
	return caseResponse{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		Status:            string(c.Status),
		Priority:          string(c.Priority),
		User:              c.UserID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		DueDate:           c.DueDate,
		ResolutionSummary: c.ResolutionSummary,
		IsDeleted:         c.IsDeleted,
	}
}

func toCaseResponses(cases []*domain.Case) []caseResponse {
	out := make([]caseResponse, 0, len(cases))
	for _, c := range cases {
		out = append(out, toCaseResponse(c))
	}
	return out
}

func toCaseEventResponses(events []*domain.CaseEvent) []caseEventResponse {
	out := make([]caseEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, caseEventResponse{
			CaseID:  e.CaseID,
			Kind:    string(e.Kind),
			Status:  string(e.Status),
			ActorID: e.ActorID,
			At:      e.At,
		})
	}
	return out
}

func (r updateCaseRequest) toPatch() domain.CasePatch {
	patch := domain.CasePatch{
		Title:             r.Title,
		Description:       domain.Nullable[string]{Set: r.Description.set, Value: r.Description.value},
		DueDate:           domain.Nullable[time.Time]{Set: r.DueDate.set, Value: r.DueDate.value.timePtr()},
		ResolutionSummary: domain.Nullable[string]{Set: r.ResolutionSummary.set, Value: r.ResolutionSummary.value},
	}
	if r.Priority != nil {
		p := domain.CasePriority(*r.Priority)
		patch.Priority = &p
	}
	if r.Status != nil {
		s := domain.CaseStatus(*r.Status)
		patch.Status = &s
	}
	return patch
}

func toUserResponse(id *domain.Identity) userResponse {
	return userResponse{ID: id.ID, Username: id.Username, Role: id.Role}
}

func toAdminUserResponse(u *domain.User) adminUserResponse {
	return adminUserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
