package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CaseStatus represents the lifecycle state of a case.
type CaseStatus string

const (
	StatusNew        CaseStatus = "new"
	StatusOpen       CaseStatus = "open"
	StatusInProgress CaseStatus = "in_progress"
	StatusResolved   CaseStatus = "resolved"
	StatusClosed     CaseStatus = "closed"
	StatusReopened   CaseStatus = "reopened"
)

// CaseStatuses is the ordered, index-addressable status list used by the
// status endpoint. Any status may follow any other.
var CaseStatuses = []CaseStatus{
	StatusNew,
	StatusOpen,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
	StatusReopened,
}

// StatusAt returns the status at idx in CaseStatuses.
func StatusAt(idx int) (CaseStatus, bool) {
	if idx < 0 || idx >= len(CaseStatuses) {
		return "", false
	}
	return CaseStatuses[idx], true
}

// Valid reports whether s is one of the known statuses.
func (s CaseStatus) Valid() bool {
	for _, known := range CaseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CasePriority is the urgency of a case.
type CasePriority string

const (
	PriorityLow    CasePriority = "low"
	PriorityMedium CasePriority = "medium"
	PriorityHigh   CasePriority = "high"
)

func (p CasePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// MaxTitleLength is the upper bound on a case title, counted in runes.
const MaxTitleLength = 200

// NormalizeTitle trims surrounding whitespace from a case title.
func NormalizeTitle(title string) string {
	return strings.TrimSpace(title)
}

// ValidTitle reports whether title is non-blank and, once trimmed, within
// MaxTitleLength.
func ValidTitle(title string) bool {
	n := utf8.RuneCountInString(NormalizeTitle(title))
	return n > 0 && n <= MaxTitleLength
}

// Case is a trackable unit of work owned by a single user.
type Case struct {
	ID                int64
	Title             string
	Description       *string
	Status            CaseStatus
	Priority          CasePriority
	UserID            int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DueDate           *time.Time
	ResolutionSummary *string
	IsDeleted         bool
}

// Nullable is a patch value for a field that may be cleared. Value nil with
// Set true clears the field.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableOf returns a set Nullable holding v.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// CasePatch carries a partial update. Nil pointers and unset Nullables are
// left untouched.
type CasePatch struct {
	Title             *string
	Description       Nullable[string]
	Priority          *CasePriority
	DueDate           Nullable[time.Time]
	ResolutionSummary Nullable[string]
	Status            *CaseStatus
}

// Apply copies every supplied field of p onto c.
func (p CasePatch) Apply(c *Case) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description.Set {
		c.Description = p.Description.Value
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.DueDate.Set {
		c.DueDate = p.DueDate.Value
	}
	if p.ResolutionSummary.Set {
		c.ResolutionSummary = p.ResolutionSummary.Value
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
}
