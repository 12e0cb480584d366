package order

import (
	"fmt"
	"strings"
)

// ItemStatus is the fulfillment stage of a single order line.
type ItemStatus string

const (
	ItemPending           ItemStatus = "pending"
	ItemOrdered           ItemStatus = "ordered"
	ItemInTransit         ItemStatus = "in_transit"
	ItemArrivedIsrael     ItemStatus = "arrived_israel"
	ItemShippedToCustomer ItemStatus = "shipped_to_customer"
	ItemDelivered         ItemStatus = "delivered"
	ItemCancelled         ItemStatus = "cancelled"
)

// ItemStatuses lists every item status in pipeline order.
var ItemStatuses = []ItemStatus{
	ItemPending,
	ItemOrdered,
	ItemInTransit,
	ItemArrivedIsrael,
	ItemShippedToCustomer,
	ItemDelivered,
	ItemCancelled,
}

// ParseItemStatus converts external input into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	st := ItemStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown item status %q", ErrValidation, s)
	}
	return st, nil
}

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemPending, ItemOrdered, ItemInTransit, ItemArrivedIsrael,
		ItemShippedToCustomer, ItemDelivered, ItemCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s ItemStatus) Terminal() bool {
	return len(AllowedNext(s)) == 0
}

func (s ItemStatus) String() string { return string(s) }

// Status is the coarse, customer-facing order status.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusReadyToShip Status = "ready_to_ship"
	StatusShipped     Status = "shipped"
	StatusDelivered   Status = "delivered"
	StatusCancelled   Status = "cancelled"
)

// ParseStatus converts external input into an order Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusRank(s)
	return ok
}

func (s Status) String() string { return string(s) }

// statusRank places order statuses on the forward-only axis used to detect regressions.
// cancelled sits outside the axis.
func statusRank(s Status) (int, bool) {
	switch s {
	case StatusPending:
		return 0, true
	case StatusInProgress:
		return 1, true
	case StatusReadyToShip:
		return 2, true
	case StatusShipped:
		return 3, true
	case StatusDelivered:
		return 4, true
	case StatusCancelled:
		return -1, true
	}
	return 0, false
}

// stageWeight is the completion weight of an item status; cancelled items carry no weight.
func stageWeight(s ItemStatus) int {
	switch s {
	case ItemPending:
		return 0
	case ItemOrdered:
		return 20
	case ItemInTransit:
		return 50
	case ItemArrivedIsrael:
		return 75
	case ItemShippedToCustomer:
		return 90
	case ItemDelivered:
		return 100
	}
	return 0
}

// defaultHistoryNote is recorded when a status change carries no caller notes.
func defaultHistoryNote(s ItemStatus) string {
	switch s {
	case ItemPending:
		return "Item is pending"
	case ItemOrdered:
		return "Item ordered from supplier"
	case ItemInTransit:
		return "Item is in transit from supplier"
	case ItemArrivedIsrael:
		return "Item arrived in Israel"
	case ItemShippedToCustomer:
		return "Item shipped to customer"
	case ItemDelivered:
		return "Item delivered to customer"
	case ItemCancelled:
		return "Item cancelled"
	}
	return "Status updated"
}
