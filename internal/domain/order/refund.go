package order

import "github.com/oklog/ulid/v2"

const refundIDPrefix = "rf_"

// NewRefundID returns a time-sortable refund identifier.
func NewRefundID() string {
	return refundIDPrefix + ulid.Make().String()
}

// Refund returns a copy of the refund with the given id.
func (o *Order) Refund(refundID string) (Refund, bool) {
	for _, r := range o.Refunds {
		if r.ID == refundID {
			return r.clone(), true
		}
	}
	return Refund{}, false
}

// PendingRefunds lists refunds that still await payout.
func (o *Order) PendingRefunds() []Refund {
	var out []Refund
	for _, r := range o.Refunds {
		if r.Status == RefundPending {
			out = append(out, r.clone())
		}
	}
	return out
}
