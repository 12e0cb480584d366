package order

import (
	"context"
	"strings"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseCancelItem = "order.item.cancel"

// CancelItemUseCase cancels an item, creates its refund and reports the new order money view.
type CancelItemUseCase struct {
	base
}

func NewCancelItemUseCase(deps Dependencies) *CancelItemUseCase {
	return &CancelItemUseCase{base: newBase(deps)}
}

type CancelItemCommand struct {
	OrderID string
	ItemID  string
	Reason  string
	Actor   string
}

func (uc *CancelItemUseCase) Execute(ctx context.Context, cmd CancelItemCommand) (_ *CancelResult, err error) {
	ctx, x := uc.begin(ctx, useCaseCancelItem, "CancelItem",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.item_id", cmd.ItemID),
	)
	x.field("order_id", cmd.OrderID)
	x.field("item_id", cmd.ItemID)
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := requireID("order id", cmd.OrderID); err != nil {
		return nil, err
	}
	if err := requireID("item id", cmd.ItemID); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(cmd.Reason)
	if err := domain.ValidateReason(reason); err != nil {
		return nil, err
	}
	limits, err := uc.thresholds(ctx)
	if err != nil {
		return nil, err
	}

	var (
		updated *domain.Order
		item    domain.Item
		refund  domain.Refund
		from    domain.ItemStatus
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		expected := o.Version
		before, err := o.Item(cmd.ItemID)
		if err != nil {
			return err
		}
		from = before.Status

		item, refund, err = o.CancelItem(cmd.ItemID, reason, cmd.Actor, uc.deps.NewRefundID(), uc.deps.Now())
		if err != nil {
			return err
		}
		updated = o
		return commitChecked(ctx, tx, o, expected)
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	check := limits.check(updated.Items.All())
	uc.countTransition(from, domain.ItemCancelled)
	uc.refunds.Add(1)
	uc.publish(ctx, x, domain.NewItemCancelledEvent(updated, item.ID, refund))

	x.field("refund_id", refund.ID)
	x.field("refund_amount", refund.Amount.String())
	x.span.SetAttributes(
		attribute.Int64("order.version", updated.Version),
		attribute.Bool("order.meets_minimum", check.Meets),
	)
	x.span.AddEvent("order.refund_created", trace.WithAttributes(
		attribute.String("refund.id", refund.ID),
		attribute.String("refund.amount", refund.Amount.String()),
	))

	return &CancelResult{
		OrderID:     updated.ID,
		Item:        item,
		Refund:      refund,
		OrderUpdate: orderUpdateFor(updated, check),
		Version:     updated.Version,
		Suggestion:  domain.Suggest(updated, uc.deps.Now()),
	}, nil
}
