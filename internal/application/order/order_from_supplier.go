package order

import (
	"context"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseOrderFromSupplier = "order.item.order_from_supplier"

// OrderFromSupplierUseCase records the one-time supplier purchase of an item.
type OrderFromSupplierUseCase struct {
	base
}

func NewOrderFromSupplierUseCase(deps Dependencies) *OrderFromSupplierUseCase {
	return &OrderFromSupplierUseCase{base: newBase(deps)}
}

type SupplierOrderData struct {
	SupplierName           string
	SupplierOrderNumber    string
	SupplierTrackingNumber string
	Notes                  string
}

func (d SupplierOrderData) validate() error {
	if err := checkLength("supplier name", d.SupplierName, domain.MaxFieldLength); err != nil {
		return err
	}
	if err := checkLength("supplier order number", d.SupplierOrderNumber, domain.MaxFieldLength); err != nil {
		return err
	}
	if err := checkLength("supplier tracking number", d.SupplierTrackingNumber, domain.MaxFieldLength); err != nil {
		return err
	}
	return checkLength("notes", d.Notes, domain.MaxNotesLength)
}

func (d SupplierOrderData) details(cost *decimal.Decimal) domain.SupplierOrderDetails {
	return domain.SupplierOrderDetails{
		SupplierName:           d.SupplierName,
		SupplierOrderNumber:    d.SupplierOrderNumber,
		SupplierTrackingNumber: d.SupplierTrackingNumber,
		Notes:                  d.Notes,
		ActualCost:             cost,
	}
}

type OrderFromSupplierCommand struct {
	OrderID string
	ItemID  string
	SupplierOrderData
	// ActualCost defaults to the item price when nil.
	ActualCost *decimal.Decimal
	Actor      string
}

func (uc *OrderFromSupplierUseCase) Execute(ctx context.Context, cmd OrderFromSupplierCommand) (_ *ItemResult, err error) {
	ctx, x := uc.begin(ctx, useCaseOrderFromSupplier, "OrderFromSupplier",
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
	if err := cmd.SupplierOrderData.validate(); err != nil {
		return nil, err
	}
	if cmd.ActualCost != nil && cmd.ActualCost.IsNegative() {
		return nil, newValidation("actual cost must be zero or greater")
	}

	var (
		updated *domain.Order
		item    domain.Item
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

		item, err = o.OrderFromSupplier(cmd.ItemID, cmd.details(cmd.ActualCost), cmd.Actor, uc.deps.Now())
		if err != nil {
			return err
		}
		updated = o
		return commitChecked(ctx, tx, o, expected)
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	uc.countTransition(from, domain.ItemOrdered)
	uc.publish(ctx, x, domain.NewItemSupplierOrderedEvent(updated, item))
	x.span.SetAttributes(attribute.Int64("order.version", updated.Version))

	return &ItemResult{
		OrderID:    updated.ID,
		Item:       item,
		Changed:    true,
		Version:    updated.Version,
		Suggestion: domain.Suggest(updated, uc.deps.Now()),
	}, nil
}
