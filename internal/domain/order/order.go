package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxReasonLength = 500
	MaxNotesLength  = 1000
	MaxFieldLength  = 200
)

// Order is the aggregate root. Items, refunds and the timeline are embedded and always
// loaded and written together with the order.
type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	Items       ItemList
	Pricing     Pricing
	Refunds     []Refund
	Status      Status
	// StatusHold is set by an explicit admin override; suggestions are suppressed while held.
	StatusHold bool
	Timeline   []TimelineEntry
	// Version is the optimistic-concurrency token, bumped by the store on every write.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Pricing struct {
	Total         decimal.Decimal
	TotalRefunds  decimal.Decimal
	AdjustedTotal decimal.Decimal
}

type Item struct {
	ID            string
	ProductID     string
	VariantSKU    string
	Name          string
	Price         decimal.Decimal
	Quantity      int
	Status        ItemStatus
	StatusHistory []StatusChange
	Cancellation  *Cancellation
	SupplierOrder *SupplierOrder
}

type StatusChange struct {
	Status    ItemStatus
	ChangedAt time.Time
	ChangedBy string
	Notes     string
}

type Cancellation struct {
	Cancelled       bool
	Reason          string
	CancelledAt     time.Time
	CancelledBy     string
	RefundAmount    decimal.Decimal
	RefundProcessed bool
}

type SupplierOrder struct {
	SupplierName           string
	OrderedAt              time.Time
	OrderedBy              string
	SupplierOrderNumber    string
	SupplierTrackingNumber string
	ActualCost             decimal.Decimal
	Notes                  string
}

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
)

type Refund struct {
	ID          string
	Amount      decimal.Decimal
	Reason      string
	ItemIDs     []string
	Status      RefundStatus
	CreatedAt   time.Time
	CreatedBy   string
	ProcessedAt *time.Time
	ProcessedBy string
}

type TimelineEntry struct {
	Status    Status
	Message   string
	Timestamp time.Time
	Automated bool
	Actor     string
}

// Cancelled reports whether the item carries a terminal cancellation.
func (i Item) Cancelled() bool {
	return i.Cancellation != nil && i.Cancellation.Cancelled
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LastChangedAt returns the timestamp of the latest history entry.
func (i Item) LastChangedAt() (time.Time, bool) {
	if len(i.StatusHistory) == 0 {
		return time.Time{}, false
	}
	return i.StatusHistory[len(i.StatusHistory)-1].ChangedAt, true
}

func (i Item) clone() Item {
	c := i
	if i.StatusHistory != nil {
		c.StatusHistory = append([]StatusChange(nil), i.StatusHistory...)
	}
	if i.Cancellation != nil {
		cc := *i.Cancellation
		c.Cancellation = &cc
	}
	if i.SupplierOrder != nil {
		so := *i.SupplierOrder
		c.SupplierOrder = &so
	}
	return c
}

// New builds a freshly placed order with every item pending. Used by the placement flow and fixtures.
func New(id, orderNumber, customerID string, items []Item, createdAt time.Time) (*Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order requires at least one item", ErrValidation)
	}
	total := decimal.Zero
	for idx := range items {
		it := &items[idx]
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %s quantity must be greater than zero", ErrValidation, it.ID)
		}
		if it.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %s price must be zero or greater", ErrValidation, it.ID)
		}
		if it.Status == "" {
			it.Status = ItemPending
		}
		total = total.Add(it.LineTotal())
	}
	list, err := NewItemList(items...)
	if err != nil {
		return nil, err
	}
	createdAt = createdAt.UTC()
	o := &Order{
		ID:          id,
		OrderNumber: orderNumber,
		CustomerID:  customerID,
		Items:       list,
		Pricing:     Pricing{Total: total},
		Status:      StatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	o.recomputePricing()
	return o, nil
}

// Item returns a copy of the item with the given id.
func (o *Order) Item(itemID string) (Item, error) {
	it, ok := o.Items.Get(itemID)
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return it, nil
}

// TransitionItem moves an item to a new status and appends one history entry.
// A self-transition without notes changes nothing and reports changed=false.
func (o *Order) TransitionItem(itemID string, to ItemStatus, actor, notes string, at time.Time) (_ Item, changed bool, err error) {
	it, err := o.Item(itemID)
	if err != nil {
		return Item{}, false, err
	}
	if it.Cancelled() {
		return Item{}, false, fmt.Errorf("%w: item %s is cancelled", ErrInvalidState, itemID)
	}
	if !to.Valid() {
		return Item{}, false, fmt.Errorf("%w: unknown item status %q", ErrValidation, to)
	}
	if to == ItemCancelled {
		return Item{}, false, fmt.Errorf("%w: cancelling an item requires a cancellation reason", ErrValidation)
	}
	if !IsValidTransition(it.Status, to) {
		return Item{}, false, NewTransitionError(it.Status, to)
	}
	if to == it.Status && strings.TrimSpace(notes) == "" {
		return it, false, nil
	}

	it.Status = to
	it.StatusHistory = append(it.StatusHistory, historyEntry(to, actor, notes, at))
	o.Items.replace(it)
	o.touch(at)
	return it.clone(), true, nil
}

// SupplierOrderDetails is the whitelisted input recorded when an item is bought from the supplier.
type SupplierOrderDetails struct {
	SupplierName           string
	SupplierOrderNumber    string
	SupplierTrackingNumber string
	Notes                  string
	// ActualCost defaults to the item price when nil.
	ActualCost *decimal.Decimal
}

// OrderFromSupplier records the one-time supplier purchase and moves the item to ordered.
func (o *Order) OrderFromSupplier(itemID string, details SupplierOrderDetails, actor string, at time.Time) (Item, error) {
	it, err := o.Item(itemID)
	if err != nil {
		return Item{}, err
	}
	if it.Cancelled() {
		return Item{}, fmt.Errorf("%w: item %s is cancelled", ErrInvalidState, itemID)
	}
	if it.SupplierOrder != nil {
		return Item{}, fmt.Errorf("%w: item %s on %s", ErrAlreadyOrdered, itemID, it.SupplierOrder.OrderedAt.Format(time.RFC3339))
	}
	// Marked ordered by a status update; the purchase was recorded elsewhere.
	if it.Status == ItemOrdered {
		return Item{}, fmt.Errorf("%w: item %s is already %s", ErrAlreadyOrdered, itemID, ItemOrdered)
	}
	cost := it.Price
	if details.ActualCost != nil {
		if details.ActualCost.IsNegative() {
			return Item{}, fmt.Errorf("%w: actual cost must be zero or greater", ErrValidation)
		}
		cost = *details.ActualCost
	}
	if !IsValidTransition(it.Status, ItemOrdered) {
		return Item{}, NewTransitionError(it.Status, ItemOrdered)
	}

	at = at.UTC()
	it.SupplierOrder = &SupplierOrder{
		SupplierName:           details.SupplierName,
		OrderedAt:              at,
		OrderedBy:              actor,
		SupplierOrderNumber:    details.SupplierOrderNumber,
		SupplierTrackingNumber: details.SupplierTrackingNumber,
		ActualCost:             cost,
		Notes:                  details.Notes,
	}
	notes := details.Notes
	if notes == "" {
		notes = defaultHistoryNote(ItemOrdered)
		if details.SupplierOrderNumber != "" {
			notes += " (" + details.SupplierOrderNumber + ")"
		}
	}
	it.Status = ItemOrdered
	it.StatusHistory = append(it.StatusHistory, historyEntry(ItemOrdered, actor, notes, at))
	o.Items.replace(it)
	o.touch(at)
	return it.clone(), nil
}

// CancelItem cancels an item, creates its refund and recomputes pricing from the item list.
func (o *Order) CancelItem(itemID, reason, actor, refundID string, at time.Time) (Item, Refund, error) {
	reason = strings.TrimSpace(reason)
	if err := ValidateReason(reason); err != nil {
		return Item{}, Refund{}, err
	}
	it, err := o.Item(itemID)
	if err != nil {
		return Item{}, Refund{}, err
	}
	if it.Cancelled() {
		return Item{}, Refund{}, fmt.Errorf("%w: item %s", ErrAlreadyCancelled, itemID)
	}
	if !IsValidTransition(it.Status, ItemCancelled) {
		return Item{}, Refund{}, NewTransitionError(it.Status, ItemCancelled)
	}

	at = at.UTC()
	amount := ItemRefund(it)
	it.Cancellation = &Cancellation{
		Cancelled:    true,
		Reason:       reason,
		CancelledAt:  at,
		CancelledBy:  actor,
		RefundAmount: amount,
	}
	it.Status = ItemCancelled
	it.StatusHistory = append(it.StatusHistory, historyEntry(ItemCancelled, actor, "Cancelled: "+reason, at))
	o.Items.replace(it)

	refund := Refund{
		ID:        refundID,
		Amount:    amount,
		Reason:    reason,
		ItemIDs:   []string{itemID},
		Status:    RefundPending,
		CreatedAt: at,
		CreatedBy: actor,
	}
	o.Refunds = append(o.Refunds, refund)
	o.recomputePricing()
	o.touch(at)
	return it.clone(), refund.clone(), nil
}

// ProcessRefund records that a pending refund was paid out. The amount never changes.
func (o *Order) ProcessRefund(refundID, actor string, at time.Time) (Refund, error) {
	idx := -1
	for i := range o.Refunds {
		if o.Refunds[i].ID == refundID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Refund{}, fmt.Errorf("%w: refund %s", ErrNotFound, refundID)
	}
	if o.Refunds[idx].Status == RefundProcessed {
		return Refund{}, fmt.Errorf("%w: refund %s already processed", ErrValidation, refundID)
	}

	at = at.UTC()
	o.Refunds[idx].Status = RefundProcessed
	o.Refunds[idx].ProcessedAt = &at
	o.Refunds[idx].ProcessedBy = actor
	for _, itemID := range o.Refunds[idx].ItemIDs {
		it, ok := o.Items.Get(itemID)
		if !ok || it.Cancellation == nil {
			continue
		}
		it.Cancellation.RefundProcessed = true
		o.Items.replace(it)
	}
	o.touch(at)
	return o.Refunds[idx].clone(), nil
}

// ApplyStatus sets the order status and appends exactly one timeline entry.
func (o *Order) ApplyStatus(status Status, message, actor string, automated bool, at time.Time) {
	at = at.UTC()
	o.Status = status
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    status,
		Message:   message,
		Timestamp: at,
		Automated: automated,
		Actor:     actor,
	})
	o.touch(at)
}

// Override is the explicit admin path; hold suppresses suggestions until released.
func (o *Order) Override(status Status, hold bool, note, actor string, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrValidation, status)
	}
	if note == "" {
		note = "Status set manually to " + string(status)
		if hold {
			note += " (held)"
		}
	}
	o.StatusHold = hold
	o.ApplyStatus(status, note, actor, false, at)
	return nil
}

// Clone returns a deep copy that shares no mutable state with o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = o.Items.clone()
	if o.Refunds != nil {
		c.Refunds = make([]Refund, len(o.Refunds))
		for i, r := range o.Refunds {
			c.Refunds[i] = r.clone()
		}
	}
	if o.Timeline != nil {
		c.Timeline = append([]TimelineEntry(nil), o.Timeline...)
	}
	return &c
}

func (r Refund) clone() Refund {
	c := r
	c.ItemIDs = append([]string(nil), r.ItemIDs...)
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return c
}

func (o *Order) recomputePricing() {
	o.Pricing = PricingFor(o.Pricing.Total, o.Items.All())
}

func (o *Order) touch(at time.Time) {
	o.UpdatedAt = at.UTC()
}

// ValidateReason enforces the cancellation reason bounds.
func ValidateReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason is required", ErrValidation)
	}
	if len([]rune(reason)) > MaxReasonLength {
		return fmt.Errorf("%w: cancellation reason exceeds %d characters", ErrValidation, MaxReasonLength)
	}
	return nil
}

func historyEntry(status ItemStatus, actor, notes string, at time.Time) StatusChange {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = defaultHistoryNote(status)
	}
	return StatusChange{
		Status:    status,
		ChangedAt: at.UTC(),
		ChangedBy: actor,
		Notes:     notes,
	}
}
