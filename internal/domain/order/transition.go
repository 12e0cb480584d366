package order

import (
	"fmt"
	"slices"
	"strings"
)

// AllowedNext returns the legal successors of current. Terminal and unknown statuses have none.
func AllowedNext(current ItemStatus) []ItemStatus {
	switch current {
	case ItemPending:
		return []ItemStatus{ItemOrdered, ItemCancelled}
	case ItemOrdered:
		return []ItemStatus{ItemInTransit, ItemCancelled}
	case ItemInTransit:
		return []ItemStatus{ItemArrivedIsrael, ItemCancelled}
	case ItemArrivedIsrael:
		return []ItemStatus{ItemShippedToCustomer, ItemDelivered}
	case ItemShippedToCustomer:
		return []ItemStatus{ItemDelivered}
	case ItemDelivered, ItemCancelled:
		return nil
	}
	return nil
}

// IsValidTransition reports whether an item may move from current to next.
// A self-transition of a known status is always valid.
func IsValidTransition(current, next ItemStatus) bool {
	if !current.Valid() || !next.Valid() {
		return false
	}
	if current == next {
		return true
	}
	return slices.Contains(AllowedNext(current), next)
}

// Explain describes why current -> next is rejected. It returns "" for valid transitions.
func Explain(current, next ItemStatus) string {
	switch {
	case !next.Valid():
		return fmt.Sprintf("%q is not a known item status", next)
	case !current.Valid():
		return fmt.Sprintf("current status %q is not a known item status", current)
	case IsValidTransition(current, next):
		return ""
	}
	allowed := AllowedNext(current)
	if len(allowed) == 0 {
		return fmt.Sprintf("cannot change status from %s to %s: %s is a final status", current, next, current)
	}
	return fmt.Sprintf("cannot change status from %s to %s; allowed: %s", current, next, joinStatuses(allowed))
}

// TransitionError carries everything a caller needs to retry an item status change correctly.
type TransitionError struct {
	Current   ItemStatus
	Attempted ItemStatus
	Allowed   []ItemStatus
}

func NewTransitionError(current, attempted ItemStatus) *TransitionError {
	return &TransitionError{
		Current:   current,
		Attempted: attempted,
		Allowed:   AllowedNext(current),
	}
}

func (e *TransitionError) Error() string {
	return "order: invalid transition: " + Explain(e.Current, e.Attempted)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func joinStatuses(ss []ItemStatus) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
