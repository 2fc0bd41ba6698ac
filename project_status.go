package main

import "errors"

// ErrStatusLocked means the project's lifecycle state forbids the attempted
// change (structural item edits after work has started, or an illegal
// status jump).
var ErrStatusLocked = errors.New("project status does not allow this change")

// Project lifecycle states. cancelled is absorbing.
const (
	StatusQuotation = "quotation"
	StatusApproved  = "approved"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusPaid      = "paid"
	StatusClosed    = "closed"
	StatusCancelled = "cancelled"
)

var projectTransitions = map[string][]string{
	StatusQuotation: {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusOngoing, StatusCancelled},
	StatusOngoing:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusPaid},
	StatusPaid:      {StatusClosed},
	StatusClosed:    {},
	StatusCancelled: {},
}

func canTransitionProject(from, to string) bool {
	for _, next := range projectTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// projectItemsEditable reports whether line items may still be added,
// changed or removed. Once work starts the item list is frozen.
func projectItemsEditable(status string) bool {
	return status == StatusQuotation || status == StatusApproved
}
