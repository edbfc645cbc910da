package domain

import "time"

// CaseEventKind names the mutation recorded in the audit trail.
type CaseEventKind string

const (
	EventCaseCreated   CaseEventKind = "created"
	EventCaseUpdated   CaseEventKind = "updated"
	EventStatusChanged CaseEventKind = "status_changed"
	EventCaseDeleted   CaseEventKind = "deleted"
)

// CaseEvent is a single audit entry for a case mutation.
type CaseEvent struct {
	CaseID  int64
	Kind    CaseEventKind
	Status  CaseStatus
	ActorID int64 // 0 when the caller is unknown
	At      time.Time
}
