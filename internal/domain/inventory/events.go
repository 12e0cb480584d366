package inventory

import "time"

const EventProductUnavailable = "inventory.product_unavailable"

// ProductUnavailableEvent is emitted once a product or variant was marked unavailable.
type ProductUnavailableEvent struct {
	ProductID  string    `json:"productId"`
	VariantSKU string    `json:"variantSku,omitempty"`
	Reason     string    `json:"reason"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (ProductUnavailableEvent) EventName() string { return EventProductUnavailable }

// PartitionKey keeps every mark for one product on one partition.
func (e ProductUnavailableEvent) PartitionKey() string { return e.ProductID }

func NewProductUnavailableEvent(ref Ref, reason, actor string, at time.Time) ProductUnavailableEvent {
	return ProductUnavailableEvent{
		ProductID:  ref.ProductID,
		VariantSKU: ref.VariantSKU,
		Reason:     reason,
		Actor:      actor,
		OccurredAt: at.UTC(),
	}
}
