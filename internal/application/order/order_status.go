package order

import (
	"context"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseApplySuggestedStatus = "order.status.apply_suggestion"
	useCaseOverrideOrderStatus  = "order.status.override"
)

type StatusResult struct {
	OrderID    string
	Applied    bool
	Previous   domain.Status
	Status     domain.Status
	StatusHold bool
	Suggestion *domain.Suggestion
	Version    int64
}

// ApplySuggestedStatusUseCase is the explicit, opt-in path that turns a suggestion into the order status.
type ApplySuggestedStatusUseCase struct {
	base
}

func NewApplySuggestedStatusUseCase(deps Dependencies) *ApplySuggestedStatusUseCase {
	return &ApplySuggestedStatusUseCase{base: newBase(deps)}
}

type ApplySuggestedStatusCommand struct {
	OrderID string
	Actor   string
}

func (uc *ApplySuggestedStatusUseCase) Execute(ctx context.Context, cmd ApplySuggestedStatusCommand) (_ *StatusResult, err error) {
	ctx, x := uc.begin(ctx, useCaseApplySuggestedStatus, "ApplySuggestedStatus",
		attribute.String("order.id", cmd.OrderID),
	)
	x.field("order_id", cmd.OrderID)
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := requireID("order id", cmd.OrderID); err != nil {
		return nil, err
	}

	var (
		res     StatusResult
		updated *domain.Order
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		expected := o.Version
		now := uc.deps.Now()
		res = StatusResult{OrderID: o.ID, Previous: o.Status, Status: o.Status, StatusHold: o.StatusHold, Version: o.Version}

		s := domain.Suggest(o, now)
		res.Suggestion = s
		updated = o
		if s == nil {
			return nil
		}
		o.ApplyStatus(s.Suggested, s.Reason, cmd.Actor, true, now)
		if err := commitChecked(ctx, tx, o, expected); err != nil {
			return err
		}
		res.Applied, res.Status, res.Version = true, o.Status, o.Version
		return nil
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	if !res.Applied {
		x.status = "NO_SUGGESTION"
		return &res, nil
	}
	uc.publish(ctx, x, domain.NewStatusAppliedEvent(updated, res.Previous, true, cmd.Actor))
	x.field("status_from", string(res.Previous))
	x.field("status_to", string(res.Status))
	return &res, nil
}

// OverrideOrderStatusUseCase sets the order status by hand; hold suppresses later suggestions.
type OverrideOrderStatusUseCase struct {
	base
}

func NewOverrideOrderStatusUseCase(deps Dependencies) *OverrideOrderStatusUseCase {
	return &OverrideOrderStatusUseCase{base: newBase(deps)}
}

type OverrideOrderStatusCommand struct {
	OrderID string
	Status  string
	Hold    bool
	Note    string
	Actor   string
}

func (uc *OverrideOrderStatusUseCase) Execute(ctx context.Context, cmd OverrideOrderStatusCommand) (_ *StatusResult, err error) {
	ctx, x := uc.begin(ctx, useCaseOverrideOrderStatus, "OverrideOrderStatus",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.status", cmd.Status),
		attribute.Bool("order.status_hold", cmd.Hold),
	)
	x.field("order_id", cmd.OrderID)
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	if err := requireID("order id", cmd.OrderID); err != nil {
		return nil, err
	}
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	if err := checkLength("note", cmd.Note, domain.MaxNotesLength); err != nil {
		return nil, err
	}

	var (
		res     StatusResult
		updated *domain.Order
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		expected := o.Version
		res = StatusResult{OrderID: o.ID, Previous: o.Status}
		if err := o.Override(status, cmd.Hold, cmd.Note, cmd.Actor, uc.deps.Now()); err != nil {
			return err
		}
		if err := commitChecked(ctx, tx, o, expected); err != nil {
			return err
		}
		updated = o
		res.Applied, res.Status, res.StatusHold, res.Version = true, o.Status, o.StatusHold, o.Version
		return nil
	})
	if err != nil {
		return nil, wrapRepositoryError(err)
	}

	uc.publish(ctx, x, domain.NewStatusAppliedEvent(updated, res.Previous, false, cmd.Actor))
	x.field("status_from", string(res.Previous))
	x.field("status_to", string(res.Status))
	return &res, nil
}
