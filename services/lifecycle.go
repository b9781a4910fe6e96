package services

import "support_directory_go/models"

// Lifecycle is a status state machine. Statuses without outgoing
// transitions are terminal.
type Lifecycle struct {
	Entity      string
	transitions map[string][]string
}

// ApplicationLifecycle governs benefit applications
var ApplicationLifecycle = Lifecycle{
	Entity: EntityApplication,
	transitions: map[string][]string{
		models.ApplicationStatusPending:  {models.ApplicationStatusApproved, models.ApplicationStatusRejected, models.ApplicationStatusInReview},
		models.ApplicationStatusInReview: {models.ApplicationStatusApproved, models.ApplicationStatusRejected},
		models.ApplicationStatusApproved: {models.ApplicationStatusClosed},
		models.ApplicationStatusRejected: nil,
		models.ApplicationStatusClosed:   nil,
	},
}

// CaseLifecycle governs case records
var CaseLifecycle = Lifecycle{
	Entity: EntityCase,
	transitions: map[string][]string{
		models.CaseStatusOpen:    {models.CaseStatusPending, models.CaseStatusClosed},
		models.CaseStatusPending: {models.CaseStatusOpen, models.CaseStatusClosed},
		models.CaseStatusClosed:  nil,
	},
}

// GoalLifecycle governs goals
var GoalLifecycle = Lifecycle{
	Entity: EntityGoal,
	transitions: map[string][]string{
		models.GoalStatusOpen:      {models.GoalStatusCompleted},
		models.GoalStatusCompleted: nil,
	},
}

// IsKnown reports whether status belongs to the lifecycle
func (l Lifecycle) IsKnown(status string) bool {
	_, ok := l.transitions[status]
	return ok
}

// IsTerminal reports whether no transition leaves status
func (l Lifecycle) IsTerminal(status string) bool {
	return len(l.transitions[status]) == 0
}

// Check validates a transition. Unknown statuses are validation errors;
// disallowed transitions are conflicts.
func (l Lifecycle) Check(from, to string) error {
	if !l.IsKnown(to) {
		return NewValidationError("unknown %s status %q", l.Entity, to)
	}
	if !l.IsKnown(from) {
		return NewConflictError("%s is in unknown status %q", l.Entity, from)
	}
	if containsString(l.transitions[from], to) {
		return nil
	}
	return NewConflictError("%s cannot move from %s to %s", l.Entity, from, to)
}
