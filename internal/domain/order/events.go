package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventItemStatusChanged   = "order.item_status_changed"
	EventItemSupplierOrdered = "order.item_supplier_ordered"
	EventItemCancelled       = "order.item_cancelled"
	EventRefundProcessed     = "order.refund_processed"
	EventStatusApplied       = "order.status_applied"
)

// ItemStatusChangedEvent is emitted after an item status change is committed.
type ItemStatusChangedEvent struct {
	OrderID    string     `json:"orderId"`
	ItemID     string     `json:"itemId"`
	From       ItemStatus `json:"from"`
	To         ItemStatus `json:"to"`
	Actor      string     `json:"actor"`
	Version    int64      `json:"version"`
	OccurredAt time.Time  `json:"occurredAt"`
}

func (ItemStatusChangedEvent) EventName() string      { return EventItemStatusChanged }
func (e ItemStatusChangedEvent) PartitionKey() string { return e.OrderID }

func NewItemStatusChangedEvent(o *Order, itemID string, from, to ItemStatus, actor string) ItemStatusChangedEvent {
	return ItemStatusChangedEvent{
		OrderID:    o.ID,
		ItemID:     itemID,
		From:       from,
		To:         to,
		Actor:      actor,
		Version:    o.Version,
		OccurredAt: o.UpdatedAt,
	}
}

type ItemSupplierOrderedEvent struct {
	OrderID             string          `json:"orderId"`
	ItemID              string          `json:"itemId"`
	SupplierName        string          `json:"supplierName,omitempty"`
	SupplierOrderNumber string          `json:"supplierOrderNumber,omitempty"`
	ActualCost          decimal.Decimal `json:"actualCost"`
	Actor               string          `json:"actor"`
	Version             int64           `json:"version"`
	OccurredAt          time.Time       `json:"occurredAt"`
}

func (ItemSupplierOrderedEvent) EventName() string      { return EventItemSupplierOrdered }
func (e ItemSupplierOrderedEvent) PartitionKey() string { return e.OrderID }

func NewItemSupplierOrderedEvent(o *Order, it Item) ItemSupplierOrderedEvent {
	e := ItemSupplierOrderedEvent{
		OrderID:    o.ID,
		ItemID:     it.ID,
		Version:    o.Version,
		OccurredAt: o.UpdatedAt,
	}
	if so := it.SupplierOrder; so != nil {
		e.SupplierName = so.SupplierName
		e.SupplierOrderNumber = so.SupplierOrderNumber
		e.ActualCost = so.ActualCost
		e.Actor = so.OrderedBy
	}
	return e
}

type ItemCancelledEvent struct {
	OrderID      string          `json:"orderId"`
	ItemID       string          `json:"itemId"`
	RefundID     string          `json:"refundId"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Reason       string          `json:"reason"`
	Actor        string          `json:"actor"`
	Version      int64           `json:"version"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

func (ItemCancelledEvent) EventName() string      { return EventItemCancelled }
func (e ItemCancelledEvent) PartitionKey() string { return e.OrderID }

func NewItemCancelledEvent(o *Order, itemID string, r Refund) ItemCancelledEvent {
	return ItemCancelledEvent{
		OrderID:      o.ID,
		ItemID:       itemID,
		RefundID:     r.ID,
		RefundAmount: r.Amount,
		Reason:       r.Reason,
		Actor:        r.CreatedBy,
		Version:      o.Version,
		OccurredAt:   r.CreatedAt,
	}
}

type RefundProcessedEvent struct {
	OrderID    string          `json:"orderId"`
	RefundID   string          `json:"refundId"`
	Amount     decimal.Decimal `json:"amount"`
	Actor      string          `json:"actor"`
	Version    int64           `json:"version"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func (RefundProcessedEvent) EventName() string      { return EventRefundProcessed }
func (e RefundProcessedEvent) PartitionKey() string { return e.OrderID }

func NewRefundProcessedEvent(o *Order, r Refund) RefundProcessedEvent {
	return RefundProcessedEvent{
		OrderID:    o.ID,
		RefundID:   r.ID,
		Amount:     r.Amount,
		Actor:      r.ProcessedBy,
		Version:    o.Version,
		OccurredAt: o.UpdatedAt,
	}
}

// StatusAppliedEvent is emitted when the order status is set, automatically or by an override.
type StatusAppliedEvent struct {
	OrderID    string    `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Automated  bool      `json:"automated"`
	Hold       bool      `json:"hold"`
	Actor      string    `json:"actor"`
	Version    int64     `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (StatusAppliedEvent) EventName() string      { return EventStatusApplied }
func (e StatusAppliedEvent) PartitionKey() string { return e.OrderID }

func NewStatusAppliedEvent(o *Order, from Status, automated bool, actor string) StatusAppliedEvent {
	return StatusAppliedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		Automated:  automated,
		Hold:       o.StatusHold,
		Actor:      actor,
		Version:    o.Version,
		OccurredAt: o.UpdatedAt,
	}
}
