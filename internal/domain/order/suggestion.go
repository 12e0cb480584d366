package order

import (
	"fmt"
	"time"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Suggestion is an advisory order-status change derived from item states. It is never applied implicitly.
type Suggestion struct {
	Current    Status
	Suggested  Status
	Confidence Confidence
	Reason     string
}

// Suggest returns nil when the order should stay as it is: same status, a protected or held order,
// or a candidate that would move backwards.
func Suggest(o *Order, now time.Time) *Suggestion {
	return SuggestFromProgress(o, DeriveProgress(o.Items.All(), o.CreatedAt, now))
}

// SuggestFromProgress is Suggest for callers that already derived progress.
func SuggestFromProgress(o *Order, p Progress) *Suggestion {
	candidate := p.Overall
	if candidate == o.Status || protected(o) {
		return nil
	}
	if candidate != StatusCancelled && regresses(o.Status, candidate) {
		return nil
	}

	share, driving, base := drivingShare(candidate, p)
	return &Suggestion{
		Current:    o.Status,
		Suggested:  candidate,
		Confidence: confidenceFor(share),
		Reason:     fmt.Sprintf("%d of %d items %s", driving, base, drivingLabel(candidate)),
	}
}

func protected(o *Order) bool {
	if o.StatusHold {
		return true
	}
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}

func regresses(current, candidate Status) bool {
	cur, ok := statusRank(current)
	if !ok || current == StatusCancelled {
		return false
	}
	next, _ := statusRank(candidate)
	return next < cur
}

// drivingShare measures how many items are in the statuses that produce candidate.
func drivingShare(candidate Status, p Progress) (share float64, driving, base int) {
	base = p.ActiveCount
	switch candidate {
	case StatusCancelled:
		base = p.TotalCount
		driving = p.Counts[ItemCancelled]
	case StatusDelivered:
		driving = p.Counts[ItemDelivered]
	case StatusShipped:
		driving = p.Counts[ItemShippedToCustomer] + p.Counts[ItemDelivered]
	case StatusReadyToShip:
		driving = p.Counts[ItemArrivedIsrael]
	case StatusInProgress:
		driving = p.Counts[ItemOrdered] + p.Counts[ItemInTransit] + p.Counts[ItemArrivedIsrael]
	case StatusPending:
		driving = p.Counts[ItemPending]
	}
	if base == 0 {
		return 1, driving, base
	}
	return float64(driving) / float64(base), driving, base
}

func confidenceFor(share float64) Confidence {
	switch {
	case share >= 1:
		return ConfidenceHigh
	case share >= 0.7:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func drivingLabel(s Status) string {
	switch s {
	case StatusCancelled:
		return "cancelled"
	case StatusDelivered:
		return "delivered"
	case StatusShipped:
		return "shipped or delivered"
	case StatusReadyToShip:
		return "arrived in Israel"
	case StatusInProgress:
		return "ordered or on the way"
	}
	return "pending"
}
