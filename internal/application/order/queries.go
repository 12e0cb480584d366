package order

import (
	"context"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseGetItemHistory   = "order.item.history"
	useCaseGetOrderProgress = "order.progress"
)

// GetItemHistoryUseCase is a read-only projection of an item's status history.
type GetItemHistoryUseCase struct {
	base
}

func NewGetItemHistoryUseCase(deps Dependencies) *GetItemHistoryUseCase {
	return &GetItemHistoryUseCase{base: newBase(deps)}
}

type GetItemHistoryQuery struct {
	OrderID string
	ItemID  string
}

type ItemHistory struct {
	OrderID       string
	ItemID        string
	CurrentStatus domain.ItemStatus
	AllowedNext   []domain.ItemStatus
	History       []domain.StatusChange
	Cancellation  *domain.Cancellation
	SupplierOrder *domain.SupplierOrder
}

func (uc *GetItemHistoryUseCase) Execute(ctx context.Context, q GetItemHistoryQuery) (_ *ItemHistory, err error) {
	ctx, x := uc.begin(ctx, useCaseGetItemHistory, "GetItemHistory",
		attribute.String("order.id", q.OrderID),
		attribute.String("order.item_id", q.ItemID),
	)
	x.field("order_id", q.OrderID)
	x.field("item_id", q.ItemID)
	defer func() { uc.finish(ctx, x, err) }()

	o, err := uc.deps.Store.Get(ctx, q.OrderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	it, err := o.Item(q.ItemID)
	if err != nil {
		return nil, err
	}
	allowed := domain.AllowedNext(it.Status)
	if it.Cancelled() {
		allowed = nil
	}
	return &ItemHistory{
		OrderID:       o.ID,
		ItemID:        it.ID,
		CurrentStatus: it.Status,
		AllowedNext:   allowed,
		History:       it.StatusHistory,
		Cancellation:  it.Cancellation,
		SupplierOrder: it.SupplierOrder,
	}, nil
}

// GetOrderProgressUseCase derives the aggregate view of an order without writing.
type GetOrderProgressUseCase struct {
	base
}

func NewGetOrderProgressUseCase(deps Dependencies) *GetOrderProgressUseCase {
	return &GetOrderProgressUseCase{base: newBase(deps)}
}

type GetOrderProgressQuery struct {
	OrderID string
}

type OrderProgress struct {
	OrderID      string
	OrderNumber  string
	Status       domain.Status
	StatusHold   bool
	Progress     domain.Progress
	Pricing      domain.Pricing
	MinimumCheck domain.MinimumCheck
	Refunds      []domain.Refund
	Timeline     []domain.TimelineEntry
	Version      int64
	Suggestion   *domain.Suggestion
}

func (uc *GetOrderProgressUseCase) Execute(ctx context.Context, q GetOrderProgressQuery) (_ *OrderProgress, err error) {
	ctx, x := uc.begin(ctx, useCaseGetOrderProgress, "GetOrderProgress",
		attribute.String("order.id", q.OrderID),
	)
	x.field("order_id", q.OrderID)
	defer func() { uc.finish(ctx, x, err) }()

	limits, err := uc.thresholds(ctx)
	if err != nil {
		return nil, err
	}
	o, err := uc.deps.Store.Get(ctx, q.OrderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	items := o.Items.All()
	p := domain.DeriveProgress(items, o.CreatedAt, uc.deps.Now())
	if p.NeedsAttention {
		x.field("stale_items", len(p.StaleItemIDs))
	}
	x.span.SetAttributes(
		attribute.String("order.progress", string(p.Overall)),
		attribute.Int("order.completion", p.CompletionPercentage),
	)

	return &OrderProgress{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       o.Status,
		StatusHold:   o.StatusHold,
		Progress:     p,
		Pricing:      o.Pricing,
		MinimumCheck: limits.check(items),
		Refunds:      o.Refunds,
		Timeline:     o.Timeline,
		Version:      o.Version,
		Suggestion:   domain.SuggestFromProgress(o, p),
	}, nil
}
