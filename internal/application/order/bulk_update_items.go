package order

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseBulkUpdateItems = "order.item.bulk_update_status"

// BulkUpdateItemsUseCase applies one status to many items of a single order.
// Items are validated independently; valid changes are committed together.
type BulkUpdateItemsUseCase struct {
	base
}

func NewBulkUpdateItemsUseCase(deps Dependencies) *BulkUpdateItemsUseCase {
	return &BulkUpdateItemsUseCase{base: newBase(deps)}
}

type BulkUpdateItemsCommand struct {
	OrderID string
	ItemIDs []string
	Status  string
	Notes   string
	Actor   string
}

type BulkResult struct {
	OrderID    string
	Results    []ItemOutcome
	Succeeded  int
	Failed     int
	Version    int64
	Suggestion *domain.Suggestion
}

func (uc *BulkUpdateItemsUseCase) Execute(ctx context.Context, cmd BulkUpdateItemsCommand) (_ *BulkResult, err error) {
	ctx, x := uc.begin(ctx, useCaseBulkUpdateItems, "BulkUpdateItems",
		attribute.String("order.id", cmd.OrderID),
		attribute.Int("batch.size", len(cmd.ItemIDs)),
	)
	x.field("order_id", cmd.OrderID)
	x.field("batch_size", len(cmd.ItemIDs))
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := requireID("order id", cmd.OrderID); err != nil {
		return nil, err
	}
	switch n := len(cmd.ItemIDs); {
	case n == 0:
		return nil, newValidation("item ids are required")
	case n > MaxBatchSize:
		return nil, newValidation(fmt.Sprintf("at most %d items per request", MaxBatchSize))
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

	type change struct {
		itemID string
		from   domain.ItemStatus
	}
	var (
		updated  *domain.Order
		outcomes []ItemOutcome
		changes  []change
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		// retried callbacks must start clean
		outcomes, changes = outcomes[:0], changes[:0]

		o, err := tx.LoadForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		expected := o.Version
		seen := make(map[string]struct{}, len(cmd.ItemIDs))
		now := uc.deps.Now()

		for _, itemID := range cmd.ItemIDs {
			out := ItemOutcome{OrderID: o.ID, ItemID: itemID}
			if _, dup := seen[itemID]; dup {
				out.Err = newValidation("duplicate item id " + itemID)
				outcomes = append(outcomes, out)
				continue
			}
			seen[itemID] = struct{}{}

			before, err := o.Item(itemID)
			if err != nil {
				out.Err = err
				outcomes = append(outcomes, out)
				continue
			}
			it, changed, err := o.TransitionItem(itemID, next, cmd.Actor, cmd.Notes, now)
			if err != nil {
				out.Err = err
				outcomes = append(outcomes, out)
				continue
			}
			out.Item = &it
			outcomes = append(outcomes, out)
			if changed {
				changes = append(changes, change{itemID: itemID, from: before.Status})
			}
		}

		updated = o
		if len(changes) == 0 {
			return nil
		}
		return commitChecked(ctx, tx, o, expected)
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	events := make([]domoutbox.Event, 0, len(changes))
	for _, c := range changes {
		uc.countTransition(c.from, next)
		events = append(events, domain.NewItemStatusChangedEvent(updated, c.itemID, c.from, next, cmd.Actor))
	}
	uc.publish(ctx, x, events...)

	ok, failed := countOutcomes(outcomes)
	x.field("succeeded", ok)
	x.field("failed", failed)
	if failed > 0 {
		x.status = "PARTIAL_FAILURE"
	}
	x.span.SetAttributes(
		attribute.Int("batch.succeeded", ok),
		attribute.Int("batch.failed", failed),
		attribute.Int64("order.version", updated.Version),
	)

	return &BulkResult{
		OrderID:    updated.ID,
		Results:    outcomes,
		Succeeded:  ok,
		Failed:     failed,
		Version:    updated.Version,
		Suggestion: domain.Suggest(updated, uc.deps.Now()),
	}, nil
}
