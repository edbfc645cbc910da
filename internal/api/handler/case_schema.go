package handler

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateTime accepts either an RFC 3339 timestamp or a plain YYYY-MM-DD date.
type dateTime time.Time

func (d *dateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("due_date must be a string: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = dateTime(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("due_date %q is not an RFC 3339 timestamp or YYYY-MM-DD date", s)
}

func (d *dateTime) timePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := time.Time(*d)
	return &t
}

// nullable records whether a JSON field was present, so an explicit null
// can be told apart from an omitted field.
type nullable[T any] struct {
	set   bool
	value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		n.value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.value = &v
	return nil
}

type createCaseRequest struct {
	Title       string    `json:"title"       validate:"required,max=200"`
	Description *string   `json:"description"`
	Priority    string    `json:"priority"    validate:"omitempty,oneof=low medium high"`
	DueDate     *dateTime `json:"due_date"`
}

// updateCaseRequest is a partial update: omitted fields are left unchanged
// and null clears description, due_date and resolution_summary. Field values
// are validated by the case service.
type updateCaseRequest struct {
	Title             *string            `json:"title"`
	Description       nullable[string]   `json:"description"`
	Priority          *string            `json:"priority"`
	DueDate           nullable[dateTime] `json:"due_date"`
	ResolutionSummary nullable[string]   `json:"resolution_summary"`
	Status            *string            `json:"status"`
}

type caseResponse struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	Status            string     `json:"status"`
	Priority          string     `json:"priority"`
	User              int64      `json:"user"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DueDate           *time.Time `json:"due_date"`
	ResolutionSummary *string    `json:"resolution_summary"`
	IsDeleted         bool       `json:"is_deleted"`
}

type caseEventResponse struct {
	CaseID  int64     `json:"case_id"`
	Kind    string    `json:"kind"`
	Status  string    `json:"status,omitempty"`
	ActorID int64     `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
}
