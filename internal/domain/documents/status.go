package documents

import "docnum/internal/core/apperror"

// Status is the lifecycle state of a business document.
// The original transitions (DRAFT -> SENT -> PAID for billing documents,
// DRAFT -> APPROVED for purchasing) were enforced ad hoc per request
// handler; here they are made explicit.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusApproved, StatusCancelled},
	StatusSent:     {StatusPaid, StatusCancelled},
	StatusApproved: {StatusCancelled},
	// PAID and CANCELLED are terminal
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusApproved, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a change from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the error for a disallowed change.
func (s Status) Transition(next Status) error {
	if !next.Valid() {
		return apperror.NewValidation("unknown status").WithDetail("status", string(next))
	}
	if !s.CanTransition(next) {
		return apperror.NewStatusTransition(string(s), string(next))
	}
	return nil
}
