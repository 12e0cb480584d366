package order

import (
	"context"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseUpdateItemStatus = "order.item.update_status"

// UpdateItemStatusUseCase moves one item along the fulfillment pipeline.
type UpdateItemStatusUseCase struct {
	base
}

func NewUpdateItemStatusUseCase(deps Dependencies) *UpdateItemStatusUseCase {
	return &UpdateItemStatusUseCase{base: newBase(deps)}
}

type UpdateItemStatusCommand struct {
	OrderID string
	ItemID  string
	Status  string
	Notes   string
	Actor   string
}

func (uc *UpdateItemStatusUseCase) Execute(ctx context.Context, cmd UpdateItemStatusCommand) (_ *ItemResult, err error) {
	ctx, x := uc.begin(ctx, useCaseUpdateItemStatus, "UpdateItemStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.item_id", cmd.ItemID),
		attribute.String("order.item_status", cmd.Status),
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
	next, err := domain.ParseItemStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	if next == domain.ItemCancelled {
		return nil, newValidation("use the cancel operation to cancel an item")
	}
	if err := checkLength("notes", cmd.Notes, domain.MaxNotesLength); err != nil {
		return nil, err
	}

	var (
		updated *domain.Order
		item    domain.Item
		from    domain.ItemStatus
		changed bool
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

		item, changed, err = o.TransitionItem(cmd.ItemID, next, cmd.Actor, cmd.Notes, uc.deps.Now())
		if err != nil {
			return err
		}
		updated = o
		if !changed {
			return nil
		}
		return commitChecked(ctx, tx, o, expected)
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	if changed {
		uc.countTransition(from, next)
		uc.publish(ctx, x, domain.NewItemStatusChangedEvent(updated, item.ID, from, next, cmd.Actor))
	} else {
		x.status = "NO_CHANGE"
	}

	x.span.SetAttributes(attribute.Int64("order.version", updated.Version))
	x.span.AddEvent("order.item_status_changed", trace.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(next)),
	))

	return &ItemResult{
		OrderID:    updated.ID,
		Item:       item,
		Changed:    changed,
		Version:    updated.Version,
		Suggestion: domain.Suggest(updated, uc.deps.Now()),
	}, nil
}
