// Package docstore holds the persisted layout of an order aggregate shared by the
// document-oriented stores. Money travels as decimal strings so no store rounds it.
package docstore

import (
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string          `json:"id" firestore:"id"`
	OrderNumber string          `json:"orderNumber" firestore:"orderNumber"`
	CustomerID  string          `json:"customerId" firestore:"customerId"`
	Items       []Item          `json:"items" firestore:"items"`
	ItemIDs     []string        `json:"itemIds" firestore:"itemIds"`
	Pricing     Pricing         `json:"pricing" firestore:"pricing"`
	Refunds     []Refund        `json:"refunds" firestore:"refunds"`
	Status      string          `json:"status" firestore:"status"`
	StatusHold  bool            `json:"statusHold" firestore:"statusHold"`
	Timeline    []TimelineEntry `json:"timeline" firestore:"timeline"`
	Version     int64           `json:"version" firestore:"version"`
	CreatedAt   time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

type Pricing struct {
	Total         string `json:"total" firestore:"total"`
	TotalRefunds  string `json:"totalRefunds" firestore:"totalRefunds"`
	AdjustedTotal string `json:"adjustedTotal" firestore:"adjustedTotal"`
}

type Item struct {
	ID            string         `json:"id" firestore:"id"`
	ProductID     string         `json:"productId" firestore:"productId"`
	VariantSKU    string         `json:"variantSku,omitempty" firestore:"variantSku"`
	Name          string         `json:"name" firestore:"name"`
	Price         string         `json:"price" firestore:"price"`
	Quantity      int            `json:"quantity" firestore:"quantity"`
	Status        string         `json:"status" firestore:"status"`
	StatusHistory []StatusChange `json:"statusHistory" firestore:"statusHistory"`
	Cancellation  *Cancellation  `json:"cancellation,omitempty" firestore:"cancellation,omitempty"`
	SupplierOrder *SupplierOrder `json:"supplierOrder,omitempty" firestore:"supplierOrder,omitempty"`
}

type StatusChange struct {
	Status    string    `json:"status" firestore:"status"`
	ChangedAt time.Time `json:"changedAt" firestore:"changedAt"`
	ChangedBy string    `json:"changedBy" firestore:"changedBy"`
	Notes     string    `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type Cancellation struct {
	Cancelled       bool      `json:"cancelled" firestore:"cancelled"`
	Reason          string    `json:"reason" firestore:"reason"`
	CancelledAt     time.Time `json:"cancelledAt" firestore:"cancelledAt"`
	CancelledBy     string    `json:"cancelledBy" firestore:"cancelledBy"`
	RefundAmount    string    `json:"refundAmount" firestore:"refundAmount"`
	RefundProcessed bool      `json:"refundProcessed" firestore:"refundProcessed"`
}

type SupplierOrder struct {
	SupplierName           string    `json:"supplierName,omitempty" firestore:"supplierName,omitempty"`
	OrderedAt              time.Time `json:"orderedAt" firestore:"orderedAt"`
	OrderedBy              string    `json:"orderedBy" firestore:"orderedBy"`
	SupplierOrderNumber    string    `json:"supplierOrderNumber,omitempty" firestore:"supplierOrderNumber,omitempty"`
	SupplierTrackingNumber string    `json:"supplierTrackingNumber,omitempty" firestore:"supplierTrackingNumber,omitempty"`
	ActualCost             string    `json:"actualCost" firestore:"actualCost"`
	Notes                  string    `json:"notes,omitempty" firestore:"notes,omitempty"`
}

type Refund struct {
	ID          string     `json:"id" firestore:"id"`
	Amount      string     `json:"amount" firestore:"amount"`
	Reason      string     `json:"reason" firestore:"reason"`
	ItemIDs     []string   `json:"itemIds" firestore:"itemIds"`
	Status      string     `json:"status" firestore:"status"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	CreatedBy   string     `json:"createdBy" firestore:"createdBy"`
	ProcessedAt *time.Time `json:"processedAt,omitempty" firestore:"processedAt,omitempty"`
	ProcessedBy string     `json:"processedBy,omitempty" firestore:"processedBy,omitempty"`
}

type TimelineEntry struct {
	Status    string    `json:"status" firestore:"status"`
	Message   string    `json:"message" firestore:"message"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
	Automated bool      `json:"automated" firestore:"automated"`
	Actor     string    `json:"actor,omitempty" firestore:"actor,omitempty"`
}

// FromOrder flattens an aggregate into its persisted layout.
func FromOrder(o *domain.Order) Order {
	items := o.Items.All()
	d := Order{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Items:       make([]Item, len(items)),
		ItemIDs:     o.Items.IDs(),
		Pricing: Pricing{
			Total:         o.Pricing.Total.String(),
			TotalRefunds:  o.Pricing.TotalRefunds.String(),
			AdjustedTotal: o.Pricing.AdjustedTotal.String(),
		},
		Refunds:    make([]Refund, len(o.Refunds)),
		Status:     string(o.Status),
		StatusHold: o.StatusHold,
		Timeline:   make([]TimelineEntry, len(o.Timeline)),
		Version:    o.Version,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	for i, it := range items {
		d.Items[i] = fromItem(it)
	}
	for i, r := range o.Refunds {
		d.Refunds[i] = Refund{
			ID:          r.ID,
			Amount:      r.Amount.String(),
			Reason:      r.Reason,
			ItemIDs:     append([]string(nil), r.ItemIDs...),
			Status:      string(r.Status),
			CreatedAt:   r.CreatedAt,
			CreatedBy:   r.CreatedBy,
			ProcessedAt: r.ProcessedAt,
			ProcessedBy: r.ProcessedBy,
		}
	}
	for i, e := range o.Timeline {
		d.Timeline[i] = TimelineEntry{
			Status:    string(e.Status),
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Automated: e.Automated,
			Actor:     e.Actor,
		}
	}
	return d
}

func fromItem(it domain.Item) Item {
	d := Item{
		ID:            it.ID,
		ProductID:     it.ProductID,
		VariantSKU:    it.VariantSKU,
		Name:          it.Name,
		Price:         it.Price.String(),
		Quantity:      it.Quantity,
		Status:        string(it.Status),
		StatusHistory: make([]StatusChange, len(it.StatusHistory)),
	}
	for i, h := range it.StatusHistory {
		d.StatusHistory[i] = StatusChange{Status: string(h.Status), ChangedAt: h.ChangedAt, ChangedBy: h.ChangedBy, Notes: h.Notes}
	}
	if c := it.Cancellation; c != nil {
		d.Cancellation = &Cancellation{
			Cancelled:       c.Cancelled,
			Reason:          c.Reason,
			CancelledAt:     c.CancelledAt,
			CancelledBy:     c.CancelledBy,
			RefundAmount:    c.RefundAmount.String(),
			RefundProcessed: c.RefundProcessed,
		}
	}
	if s := it.SupplierOrder; s != nil {
		d.SupplierOrder = &SupplierOrder{
			SupplierName:           s.SupplierName,
			OrderedAt:              s.OrderedAt,
			OrderedBy:              s.OrderedBy,
			SupplierOrderNumber:    s.SupplierOrderNumber,
			SupplierTrackingNumber: s.SupplierTrackingNumber,
			ActualCost:             s.ActualCost.String(),
			Notes:                  s.Notes,
		}
	}
	return d
}

// ToOrder rebuilds the aggregate. Unknown statuses and malformed amounts are rejected
// rather than silently defaulted.
func (d Order) ToOrder() (*domain.Order, error) {
	status, err := domain.ParseStatus(d.Status)
	if err != nil {
		return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
	}
	total, err := parseMoney("pricing.total", d.Pricing.Total)
	if err != nil {
		return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
	}
	refunds, err := parseMoney("pricing.totalRefunds", d.Pricing.TotalRefunds)
	if err != nil {
		return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
	}
	adjusted, err := parseMoney("pricing.adjustedTotal", d.Pricing.AdjustedTotal)
	if err != nil {
		return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
	}

	items := make([]domain.Item, len(d.Items))
	for i, it := range d.Items {
		if items[i], err = it.toItem(); err != nil {
			return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
		}
	}
	list, err := domain.NewItemList(items...)
	if err != nil {
		return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
	}

	o := &domain.Order{
		ID:          d.ID,
		OrderNumber: d.OrderNumber,
		CustomerID:  d.CustomerID,
		Items:       list,
		Pricing:     domain.Pricing{Total: total, TotalRefunds: refunds, AdjustedTotal: adjusted},
		Status:      status,
		StatusHold:  d.StatusHold,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	for _, r := range d.Refunds {
		amount, err := parseMoney("refund.amount", r.Amount)
		if err != nil {
			return nil, fmt.Errorf("docstore: order %s: %w", d.ID, err)
		}
		o.Refunds = append(o.Refunds, domain.Refund{
			ID:          r.ID,
			Amount:      amount,
			Reason:      r.Reason,
			ItemIDs:     append([]string(nil), r.ItemIDs...),
			Status:      domain.RefundStatus(r.Status),
			CreatedAt:   r.CreatedAt.UTC(),
			CreatedBy:   r.CreatedBy,
			ProcessedAt: r.ProcessedAt,
			ProcessedBy: r.ProcessedBy,
		})
	}
	for _, e := range d.Timeline {
		st, err := domain.ParseStatus(e.Status)
		if err != nil {
			return nil, fmt.Errorf("docstore: order %s timeline: %w", d.ID, err)
		}
		o.Timeline = append(o.Timeline, domain.TimelineEntry{
			Status:    st,
			Message:   e.Message,
			Timestamp: e.Timestamp.UTC(),
			Automated: e.Automated,
			Actor:     e.Actor,
		})
	}
	return o, nil
}

func (d Item) toItem() (domain.Item, error) {
	status, err := domain.ParseItemStatus(d.Status)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	price, err := parseMoney("price", d.Price)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
	}
	it := domain.Item{
		ID:         d.ID,
		ProductID:  d.ProductID,
		VariantSKU: d.VariantSKU,
		Name:       d.Name,
		Price:      price,
		Quantity:   d.Quantity,
		Status:     status,
	}
	for _, h := range d.StatusHistory {
		hs, err := domain.ParseItemStatus(h.Status)
		if err != nil {
			return domain.Item{}, fmt.Errorf("item %s history: %w", d.ID, err)
		}
		it.StatusHistory = append(it.StatusHistory, domain.StatusChange{
			Status:    hs,
			ChangedAt: h.ChangedAt.UTC(),
			ChangedBy: h.ChangedBy,
			Notes:     h.Notes,
		})
	}
	if c := d.Cancellation; c != nil {
		amount, err := parseMoney("cancellation.refundAmount", c.RefundAmount)
		if err != nil {
			return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
		}
		it.Cancellation = &domain.Cancellation{
			Cancelled:       c.Cancelled,
			Reason:          c.Reason,
			CancelledAt:     c.CancelledAt.UTC(),
			CancelledBy:     c.CancelledBy,
			RefundAmount:    amount,
			RefundProcessed: c.RefundProcessed,
		}
	}
	if s := d.SupplierOrder; s != nil {
		cost, err := parseMoney("supplierOrder.actualCost", s.ActualCost)
		if err != nil {
			return domain.Item{}, fmt.Errorf("item %s: %w", d.ID, err)
		}
		it.SupplierOrder = &domain.SupplierOrder{
			SupplierName:           s.SupplierName,
			OrderedAt:              s.OrderedAt.UTC(),
			OrderedBy:              s.OrderedBy,
			SupplierOrderNumber:    s.SupplierOrderNumber,
			SupplierTrackingNumber: s.SupplierTrackingNumber,
			ActualCost:             cost,
			Notes:                  s.Notes,
		}
	}
	return it, nil
}

func parseMoney(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q is not a decimal: %w", field, v, err)
	}
	return d, nil
}
