package order

import (
	"context"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseProcessRefund = "order.refund.process"

// ProcessRefundUseCase records that the payment side paid a pending refund out.
type ProcessRefundUseCase struct {
	base
}

func NewProcessRefundUseCase(deps Dependencies) *ProcessRefundUseCase {
	return &ProcessRefundUseCase{base: newBase(deps)}
}

type ProcessRefundCommand struct {
	OrderID  string
	RefundID string
	Actor    string
}

type RefundResult struct {
	OrderID string
	Refund  domain.Refund
	Version int64
}

func (uc *ProcessRefundUseCase) Execute(ctx context.Context, cmd ProcessRefundCommand) (_ *RefundResult, err error) {
	ctx, x := uc.begin(ctx, useCaseProcessRefund, "ProcessRefund",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("refund.id", cmd.RefundID),
	)
	x.field("order_id", cmd.OrderID)
	x.field("refund_id", cmd.RefundID)
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := requireID("order id", cmd.OrderID); err != nil {
		return nil, err
	}
	if err := requireID("refund id", cmd.RefundID); err != nil {
		return nil, err
	}

	var (
		updated *domain.Order
		refund  domain.Refund
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		expected := o.Version
		refund, err = o.ProcessRefund(cmd.RefundID, cmd.Actor, uc.deps.Now())
		if err != nil {
			return err
		}
		updated = o
		return commitChecked(ctx, tx, o, expected)
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	uc.publish(ctx, x, domain.NewRefundProcessedEvent(updated, refund))
	x.field("refund_amount", refund.Amount.String())
	return &RefundResult{OrderID: updated.ID, Refund: refund, Version: updated.Version}, nil
}
