package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caseperl/caseperl-api/internal/core/domain"
	"github.com/caseperl/caseperl-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubCaseRepo struct {
	byID      map[int64]*domain.Case
	nextID    int64
	createErr error
}

func newStubCaseRepo() *stubCaseRepo {
	return &stubCaseRepo{byID: make(map[int64]*domain.Case)}
}

func cloneCase(c *domain.Case) *domain.Case {
	clone := *c
	return &clone
}

func (r *stubCaseRepo) Create(_ context.Context, c *domain.Case) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	c.ID = r.nextID
	r.byID[c.ID] = cloneCase(c)
	return nil
}

func (r *stubCaseRepo) FindByID(_ context.Context, id int64) (*domain.Case, error) {
	c, ok := r.byID[id]
	if !ok || c.IsDeleted {
		return nil, domain.ErrCaseNotFound
	}
	return cloneCase(c), nil
}

func (r *stubCaseRepo) List(_ context.Context, f ports.ListCasesFilter) ([]*domain.Case, error) {
	out := []*domain.Case{}
	for _, c := range r.byID {
		if c.IsDeleted {
			continue
		}
		if f.OwnerID != 0 && c.UserID != f.OwnerID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Priority != "" && c.Priority != f.Priority {
			continue
		}
		out = append(out, cloneCase(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubCaseRepo) Update(_ context.Context, c *domain.Case) error {
	stored, ok := r.byID[c.ID]
	if !ok || stored.IsDeleted {
		return domain.ErrCaseNotFound
	}
	r.byID[c.ID] = cloneCase(c)
	return nil
}

func (r *stubCaseRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	c, ok := r.byID[id]
	if !ok || c.IsDeleted {
		return domain.ErrCaseNotFound
	}
	c.IsDeleted = true
	c.UpdatedAt = at
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.CaseEvent
}

func (p *recordingPublisher) Publish(ev domain.CaseEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) kinds() []domain.CaseEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.CaseEventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newCaseSvc() (*CaseService, *stubCaseRepo, *recordingPublisher) {
	repo := newStubCaseRepo()
	pub := &recordingPublisher{}
	return NewCaseService(repo, pub, zerolog.Nop()), repo, pub
}

func mustCreateCase(t *testing.T, svc *CaseService, owner int64, title string) *domain.Case {
	t.Helper()
	c, err := svc.CreateCase(context.Background(), ports.CreateCaseInput{OwnerID: owner, Title: title})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	return c
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// CreateCase
// ---------------------------------------------------------------------------

func TestCreateCase_Defaults(t *testing.T) {
	svc, _, pub := newCaseSvc()
	ctx := domain.ContextWithIdentity(context.Background(), &domain.Identity{ID: 1, Username: "u1", Role: domain.RoleAgent})

	c, err := svc.CreateCase(ctx, ports.CreateCaseInput{OwnerID: 1, Title: "Printer jam"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("expected an id")
	}
	if c.Status != domain.StatusNew {
		t.Fatalf("expected status new, got %s", c.Status)
	}
	if c.Priority != domain.PriorityMedium {
		t.Fatalf("expected default priority medium, got %s", c.Priority)
	}
	if c.IsDeleted {
		t.Fatalf("new case must not be deleted")
	}
	if c.CreatedAt.IsZero() || !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("expected matching timestamps, got %v / %v", c.CreatedAt, c.UpdatedAt)
	}

	if len(pub.events) != 1 || pub.events[0].Kind != domain.EventCaseCreated {
		t.Fatalf("expected one case_created event, got %+v", pub.events)
	}
	if pub.events[0].ActorID != 1 || pub.events[0].CaseID != c.ID {
		t.Fatalf("unexpected event payload: %+v", pub.events[0])
	}
}

func TestCreateCase_Validation(t *testing.T) {
	svc, repo, pub := newCaseSvc()

	cases := []struct {
		name string
		in   ports.CreateCaseInput
	}{
		{"empty title", ports.CreateCaseInput{OwnerID: 1}},
		{"blank title", ports.CreateCaseInput{OwnerID: 1, Title: "   \t"}},
		{"title too long", ports.CreateCaseInput{OwnerID: 1, Title: strings.Repeat("x", domain.MaxTitleLength+1)}},
		{"bad priority", ports.CreateCaseInput{OwnerID: 1, Title: "t", Priority: "urgent"}},
		{"no owner", ports.CreateCaseInput{Title: "t"}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateCase(context.Background(), tc.in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	if len(repo.byID) != 0 || len(pub.events) != 0 {
		t.Fatalf("rejected input must not persist or publish")
	}
}

func TestCreateCase_TrimsTitle(t *testing.T) {
	svc, _, _ := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "  Printer jam  ")
	if c.Title != "Printer jam" {
		t.Fatalf("expected trimmed title, got %q", c.Title)
	}
}

func TestCreateCase_TitleAtLimit(t *testing.T) {
	svc, _, _ := newCaseSvc()
	title := strings.Repeat("é", domain.MaxTitleLength)
	if _, err := svc.CreateCase(context.Background(), ports.CreateCaseInput{OwnerID: 1, Title: title}); err != nil {
		t.Fatalf("title of exactly %d runes should be accepted: %v", domain.MaxTitleLength, err)
	}
}

func TestCreateCase_RepoError(t *testing.T) {
	svc, repo, pub := newCaseSvc()
	repo.createErr = errors.New("disk full")

	if _, err := svc.CreateCase(context.Background(), ports.CreateCaseInput{OwnerID: 1, Title: "t"}); err == nil {
		t.Fatalf("expected repo error to surface")
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed create must not publish")
	}
}

func TestCreateCase_NilPublisher(t *testing.T) {
	svc := NewCaseService(newStubCaseRepo(), nil, zerolog.Nop())
	if _, err := svc.CreateCase(context.Background(), ports.CreateCaseInput{OwnerID: 1, Title: "t"}); err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

func TestListCases(t *testing.T) {
	svc, _, _ := newCaseSvc()
	a := mustCreateCase(t, svc, 1, "a")
	b := mustCreateCase(t, svc, 2, "b")
	c := mustCreateCase(t, svc, 1, "c")

	if err := svc.SoftDeleteCase(context.Background(), c.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	all, err := svc.ListAllCases(context.Background(), ports.ListCasesInput{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("expected cases a and b, got %+v", all)
	}

	mine, _ := svc.ListCasesForUser(context.Background(), 1)
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Fatalf("expected only case a for user 1, got %+v", mine)
	}

	none, err := svc.ListCasesForUser(context.Background(), 0)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil list, got %v, %v", none, err)
	}
}

func TestListAllCases_Filters(t *testing.T) {
	svc, _, _ := newCaseSvc()
	mustCreateCase(t, svc, 1, "a")
	high, _ := svc.CreateCase(context.Background(), ports.CreateCaseInput{OwnerID: 1, Title: "b", Priority: domain.PriorityHigh})
	if _, err := svc.SetStatus(context.Background(), high.ID, 2); err != nil {
		t.Fatalf("set status: %v", err)
	}

	got, _ := svc.ListAllCases(context.Background(), ports.ListCasesInput{Priority: "high"})
	if len(got) != 1 || got[0].ID != high.ID {
		t.Fatalf("priority filter: got %+v", got)
	}
	got, _ = svc.ListAllCases(context.Background(), ports.ListCasesInput{Status: "in_progress"})
	if len(got) != 1 || got[0].ID != high.ID {
		t.Fatalf("status filter: got %+v", got)
	}

	if _, err := svc.ListAllCases(context.Background(), ports.ListCasesInput{Status: "bogus"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}
	if _, err := svc.ListAllCases(context.Background(), ports.ListCasesInput{Priority: "bogus"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad priority, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// UpdateCase
// ---------------------------------------------------------------------------

func TestUpdateCase_Owner(t *testing.T) {
	svc, _, pub := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "old")

	prio := domain.PriorityHigh
	updated, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{
		Title:             strPtr("new"),
		Priority:          &prio,
		ResolutionSummary: domain.NullableOf("rebooted"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "new" || updated.Priority != domain.PriorityHigh {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.ResolutionSummary == nil || *updated.ResolutionSummary != "rebooted" {
		t.Fatalf("resolution summary not applied")
	}
	if updated.Status != domain.StatusNew || updated.UserID != 1 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updated_at must not precede created_at")
	}

	kinds := pub.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventCaseUpdated {
		t.Fatalf("expected case_updated event, got %v", kinds)
	}
}

func TestUpdateCase_ClearsNullableFields(t *testing.T) {
	svc, _, _ := newCaseSvc()
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := svc.CreateCase(context.Background(), ports.CreateCaseInput{
		OwnerID:     1,
		Title:       "VPN",
		Description: strPtr("drops hourly"),
		DueDate:     &due,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{
		ResolutionSummary: domain.NullableOf("replaced router"),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	updated, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{
		Description:       domain.Nullable[string]{Set: true},
		DueDate:           domain.Nullable[time.Time]{Set: true},
		ResolutionSummary: domain.Nullable[string]{Set: true},
	})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if updated.Description != nil || updated.DueDate != nil || updated.ResolutionSummary != nil {
		t.Fatalf("expected cleared fields, got %+v", updated)
	}
	if updated.Title != "VPN" {
		t.Fatalf("unsupplied title changed: %q", updated.Title)
	}

	// an unset Nullable leaves the value alone
	if _, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{
		Description: domain.NullableOf("back again"),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	kept, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{Title: strPtr("  VPN flaky ")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if kept.Description == nil || *kept.Description != "back again" || kept.Title != "VPN flaky" {
		t.Fatalf("unexpected case: %+v", kept)
	}
}

func TestUpdateCase_NotOwner(t *testing.T) {
	svc, repo, _ := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "mine")

	adminCtx := domain.ContextWithIdentity(context.Background(), &domain.Identity{ID: 2, Role: domain.RoleAdmin})
	_, err := svc.UpdateCase(adminCtx, c.ID, 2, domain.CasePatch{Title: strPtr("hijack")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.byID[c.ID].Title != "mine" {
		t.Fatalf("case must be unchanged")
	}
}

func TestUpdateCase_NotFoundAndInvalid(t *testing.T) {
	svc, _, _ := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "t")

	if _, err := svc.UpdateCase(context.Background(), 999, 1, domain.CasePatch{}); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
	if _, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{Title: strPtr("  ")}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty title, got %v", err)
	}
	bad := domain.CaseStatus("archived")
	if _, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{Status: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad status, got %v", err)
	}

	_ = svc.SoftDeleteCase(context.Background(), c.ID)
	if _, err := svc.UpdateCase(context.Background(), c.ID, 1, domain.CasePatch{Title: strPtr("x")}); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("deleted case: expected ErrCaseNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// SetStatus
// ---------------------------------------------------------------------------

func TestSetStatus_Indices(t *testing.T) {
	svc, _, _ := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "t")

	for idx, want := range domain.CaseStatuses {
		got, err := svc.SetStatus(context.Background(), c.ID, idx)
		if err != nil {
			t.Fatalf("index %d: %v", idx, err)
		}
		if got.Status != want {
			t.Fatalf("index %d: expected %s, got %s", idx, want, got.Status)
		}
	}

	// any status may follow any other, including going back to new
	got, err := svc.SetStatus(context.Background(), c.ID, 0)
	if err != nil || got.Status != domain.StatusNew {
		t.Fatalf("back to new: %v %v", got, err)
	}
	again, err := svc.SetStatus(context.Background(), c.ID, 0)
	if err != nil || again.Status != domain.StatusNew {
		t.Fatalf("idempotent set: %v %v", again, err)
	}
}

func TestSetStatus_OutOfRange(t *testing.T) {
	svc, repo, pub := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "t")

	for _, idx := range []int{-1, len(domain.CaseStatuses), 99} {
		if _, err := svc.SetStatus(context.Background(), c.ID, idx); !errors.Is(err, domain.ErrInvalidStatusIndex) {
			t.Fatalf("index %d: expected ErrInvalidStatusIndex, got %v", idx, err)
		}
	}
	if repo.byID[c.ID].Status != domain.StatusNew {
		t.Fatalf("status must be unchanged")
	}
	if len(pub.events) != 1 {
		t.Fatalf("rejected status change must not publish")
	}

	if _, err := svc.SetStatus(context.Background(), 999, 0); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// SoftDeleteCase
// ---------------------------------------------------------------------------

func TestSoftDeleteCase(t *testing.T) {
	svc, repo, pub := newCaseSvc()
	c := mustCreateCase(t, svc, 1, "t")

	if err := svc.SoftDeleteCase(context.Background(), c.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if !repo.byID[c.ID].IsDeleted {
		t.Fatalf("row must be kept and flagged")
	}
	if _, err := svc.GetCase(context.Background(), c.ID); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("deleted case must be hidden, got %v", err)
	}
	if err := svc.SoftDeleteCase(context.Background(), c.ID); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("second delete: expected ErrCaseNotFound, got %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), c.ID, 1); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("status on deleted: expected ErrCaseNotFound, got %v", err)
	}

	kinds := pub.kinds()
	if kinds[len(kinds)-1] != domain.EventCaseDeleted {
		t.Fatalf("expected case_deleted last, got %v", kinds)
	}
}
