package order

import "github.com/shopspring/decimal"

// ActiveItems keeps items that are not cancelled, in their original order.
func ActiveItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Cancelled() {
			out = append(out, it)
		}
	}
	return out
}

// ActiveTotal is Σ price×quantity over active items.
func ActiveTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if !it.Cancelled() {
			total = total.Add(it.LineTotal())
		}
	}
	return total
}

// RefundedTotal is Σ price×quantity over cancelled items.
func RefundedTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Cancelled() {
			total = total.Add(ItemRefund(it))
		}
	}
	return total
}

// ItemRefund is always the full line value.
func ItemRefund(it Item) decimal.Decimal {
	return it.LineTotal()
}

// PricingFor rebuilds refund totals from the item list; total is kept as placed.
func PricingFor(total decimal.Decimal, items []Item) Pricing {
	refunds := RefundedTotal(items)
	return Pricing{
		Total:         total,
		TotalRefunds:  refunds,
		AdjustedTotal: total.Sub(refunds),
	}
}

type MinimumCheck struct {
	Meets         bool
	MeetsCount    bool
	MeetsAmount   bool
	MissingCount  int
	MissingAmount decimal.Decimal
	ActiveCount   int
	ActiveTotal   decimal.Decimal
	MinimumCount  int
	MinimumAmount decimal.Decimal
}

// CheckMinimumRequirement compares the active set against the configured floors.
// Missing values are clamped at zero.
func CheckMinimumRequirement(activeCount int, activeTotal decimal.Decimal, minCount int, minAmount decimal.Decimal) MinimumCheck {
	c := MinimumCheck{
		MeetsCount:    activeCount >= minCount,
		MeetsAmount:   activeTotal.GreaterThanOrEqual(minAmount),
		MissingAmount: decimal.Zero,
		ActiveCount:   activeCount,
		ActiveTotal:   activeTotal,
		MinimumCount:  minCount,
		MinimumAmount: minAmount,
	}
	if !c.MeetsCount {
		c.MissingCount = minCount - activeCount
	}
	if !c.MeetsAmount {
		c.MissingAmount = minAmount.Sub(activeTotal)
	}
	c.Meets = c.MeetsCount && c.MeetsAmount
	return c
}

// MinimumCheckFor runs CheckMinimumRequirement over the active subset of items.
func MinimumCheckFor(items []Item, minCount int, minAmount decimal.Decimal) MinimumCheck {
	active := ActiveItems(items)
	return CheckMinimumRequirement(len(active), ActiveTotal(active), minCount, minAmount)
}
