package order

import (
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"
)

type domainThresholds struct {
	count  int
	amount decimal.Decimal
}

func (t domainThresholds) check(items []domain.Item) domain.MinimumCheck {
	return domain.MinimumCheckFor(items, t.count, t.amount)
}

// ItemResult is returned by single-item writes.
type ItemResult struct {
	OrderID    string
	Item       domain.Item
	Changed    bool
	Version    int64
	Suggestion *domain.Suggestion
}

// OrderUpdate is the money view of an order after a cancellation.
type OrderUpdate struct {
	Total            decimal.Decimal
	AdjustedTotal    decimal.Decimal
	TotalRefunds     decimal.Decimal
	ActiveItemsCount int
	ActiveItemsTotal decimal.Decimal
	MeetsMinimum     bool
	MinimumCheck     domain.MinimumCheck
}

type CancelResult struct {
	OrderID     string
	Item        domain.Item
	Refund      domain.Refund
	OrderUpdate OrderUpdate
	Version     int64
	Suggestion  *domain.Suggestion
}

func orderUpdateFor(o *domain.Order, check domain.MinimumCheck) OrderUpdate {
	return OrderUpdate{
		Total:            o.Pricing.Total,
		AdjustedTotal:    o.Pricing.AdjustedTotal,
		TotalRefunds:     o.Pricing.TotalRefunds,
		ActiveItemsCount: check.ActiveCount,
		ActiveItemsTotal: check.ActiveTotal,
		MeetsMinimum:     check.Meets,
		MinimumCheck:     check,
	}
}

// ItemOutcome is the per-item entry of a bulk result. Err is nil on success.
type ItemOutcome struct {
	OrderID string
	ItemID  string
	Item    *domain.Item
	Refund  *domain.Refund
	Err     error
}

func (o ItemOutcome) OK() bool { return o.Err == nil }

func countOutcomes(outcomes []ItemOutcome) (ok, failed int) {
	for _, o := range outcomes {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
