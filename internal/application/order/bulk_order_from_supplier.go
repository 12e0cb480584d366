package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseBulkOrderFromSupplier = "order.item.bulk_order_from_supplier"

	// OutOfStockReason is recorded on items cancelled because the supplier cannot deliver them.
	OutOfStockReason = "out_of_stock"

	inventoryConcurrency = 4
)

// BulkOrderFromSupplierUseCase processes one supplier purchase that spans many orders.
type BulkOrderFromSupplierUseCase struct {
	base
}

func NewBulkOrderFromSupplierUseCase(deps Dependencies) *BulkOrderFromSupplierUseCase {
	return &BulkOrderFromSupplierUseCase{base: newBase(deps)}
}

// ItemRef addresses an item; OrderID is optional and resolved from the item when empty.
type ItemRef struct {
	OrderID string
	ItemID  string
	// ActualCost applies to ordered items only.
	ActualCost *decimal.Decimal
}

type BulkOrderFromSupplierCommand struct {
	SupplierName string
	Ordered      []ItemRef
	Unavailable  []ItemRef
	SupplierOrderData
	Actor string
}

type InventoryFailure struct {
	Ref dominventory.Ref
	Err error
}

// BatchAbortedError is returned when the order transaction fails. The availability side-channel
// runs regardless, so its outcome travels with the error.
type BatchAbortedError struct {
	Err               error
	MarkedUnavailable []dominventory.Ref
	InventoryFailures []InventoryFailure
}

func (e *BatchAbortedError) Error() string { return e.Err.Error() }
func (e *BatchAbortedError) Unwrap() error { return e.Err }

type BulkSupplierResult struct {
	Ordered           []ItemOutcome
	Unavailable       []ItemOutcome
	MarkedUnavailable []dominventory.Ref
	InventoryFailures []InventoryFailure
	Succeeded         int
	Failed            int
	Versions          map[string]int64
}

type touchedOrder struct {
	order    *domain.Order
	expected int64
	dirty    bool
}

func (uc *BulkOrderFromSupplierUseCase) Execute(ctx context.Context, cmd BulkOrderFromSupplierCommand) (_ *BulkSupplierResult, err error) {
	total := len(cmd.Ordered) + len(cmd.Unavailable)
	ctx, x := uc.begin(ctx, useCaseBulkOrderFromSupplier, "BulkOrderFromSupplier",
		attribute.Int("batch.ordered", len(cmd.Ordered)),
		attribute.Int("batch.unavailable", len(cmd.Unavailable)),
	)
	x.field("batch_size", total)
	defer func() { uc.finish(ctx, x, err) }()

	if err := requireActor(cmd.Actor); err != nil {
		return nil, err
	}
	switch {
	case total == 0:
		return nil, newValidation("at least one item reference is required")
	case total > MaxBatchSize:
		return nil, newValidation(fmt.Sprintf("at most %d items per request", MaxBatchSize))
	}
	data := cmd.SupplierOrderData
	if data.SupplierName == "" {
		data.SupplierName = cmd.SupplierName
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	for _, ref := range append(append([]ItemRef(nil), cmd.Ordered...), cmd.Unavailable...) {
		if err := requireID("item id", ref.ItemID); err != nil {
			return nil, err
		}
		if ref.ActualCost != nil && ref.ActualCost.IsNegative() {
			return nil, newValidation("actual cost must be zero or greater")
		}
	}

	var (
		ordered, unavailable []ItemOutcome
		touched              map[string]*touchedOrder
		marks                []dominventory.Ref
		transitions          [][2]domain.ItemStatus
	)
	err = uc.deps.Store.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		ordered, unavailable, marks, transitions = nil, nil, nil, nil
		touched = make(map[string]*touchedOrder)
		seen := make(map[string]struct{}, total)
		now := uc.deps.Now()

		locate := func(ref ItemRef) (*touchedOrder, error) {
			if ref.OrderID != "" {
				if t, ok := touched[ref.OrderID]; ok {
					return t, nil
				}
				o, err := tx.LoadForUpdate(ctx, ref.OrderID)
				if err != nil {
					return nil, err
				}
				t := &touchedOrder{order: o, expected: o.Version}
				touched[o.ID] = t
				return t, nil
			}
			o, err := tx.FindOrderContainingItem(ctx, ref.ItemID)
			if err != nil {
				return nil, err
			}
			if t, ok := touched[o.ID]; ok {
				return t, nil
			}
			t := &touchedOrder{order: o, expected: o.Version}
			touched[o.ID] = t
			return t, nil
		}

		resolve := func(ref ItemRef) (*touchedOrder, domain.Item, error) {
			if _, dup := seen[ref.ItemID]; dup {
				return nil, domain.Item{}, newValidation("duplicate item id " + ref.ItemID)
			}
			seen[ref.ItemID] = struct{}{}
			t, err := locate(ref)
			if err != nil {
				return nil, domain.Item{}, err
			}
			it, err := t.order.Item(ref.ItemID)
			if err != nil {
				return nil, domain.Item{}, err
			}
			return t, it, nil
		}

		for _, ref := range cmd.Ordered {
			out := ItemOutcome{OrderID: ref.OrderID, ItemID: ref.ItemID}
			t, before, itemErr := resolve(ref)
			if itemErr != nil && !perItem(itemErr) {
				return itemErr
			}
			if itemErr == nil {
				out.OrderID = t.order.ID
				var it domain.Item
				it, itemErr = t.order.OrderFromSupplier(ref.ItemID, data.details(ref.ActualCost), cmd.Actor, now)
				if itemErr == nil {
					t.dirty = true
					out.Item = &it
					transitions = append(transitions, [2]domain.ItemStatus{before.Status, domain.ItemOrdered})
				}
			}
			out.Err = itemErr
			ordered = append(ordered, out)
		}

		for _, ref := range cmd.Unavailable {
			out := ItemOutcome{OrderID: ref.OrderID, ItemID: ref.ItemID}
			t, before, itemErr := resolve(ref)
			if itemErr != nil && !perItem(itemErr) {
				return itemErr
			}
			if itemErr == nil {
				out.OrderID = t.order.ID
				it, refund, cancelErr := t.order.CancelItem(ref.ItemID, OutOfStockReason, cmd.Actor, uc.deps.NewRefundID(), now)
				itemErr = cancelErr
				// a repeated run still marks the product; a rejected cancel never does
				if cancelErr == nil || errors.Is(cancelErr, domain.ErrAlreadyCancelled) {
					marks = append(marks, dominventory.Ref{ProductID: before.ProductID, VariantSKU: before.VariantSKU})
				}
				if cancelErr == nil {
					t.dirty = true
					out.Item, out.Refund = &it, &refund
					transitions = append(transitions, [2]domain.ItemStatus{before.Status, domain.ItemCancelled})
				}
			}
			out.Err = itemErr
			unavailable = append(unavailable, out)
		}

		for _, id := range sortedKeys(touched) {
			t := touched[id]
			if !t.dirty {
				continue
			}
			if err := commitChecked(ctx, tx, t.order, t.expected); err != nil {
				return err
			}
		}
		return nil
	})

	// catalog availability is independent of the order transaction
	marked, failures := uc.markUnavailable(ctx, x, marks, cmd.Actor)

	if err != nil {
		err = wrapRepositoryError(err)
		if len(marked) > 0 || len(failures) > 0 {
			uc.publish(ctx, x, uc.unavailableEvents(marked, cmd.Actor)...)
			err = &BatchAbortedError{Err: err, MarkedUnavailable: marked, InventoryFailures: failures}
		}
		return nil, err
	}

	for _, tr := range transitions {
		uc.countTransition(tr[0], tr[1])
	}
	published := make([]domoutbox.Event, 0, total+len(marked))
	for _, out := range ordered {
		if out.OK() {
			published = append(published, domain.NewItemSupplierOrderedEvent(touched[out.OrderID].order, *out.Item))
		}
	}
	for _, out := range unavailable {
		if out.OK() {
			uc.refunds.Add(1)
			published = append(published, domain.NewItemCancelledEvent(touched[out.OrderID].order, out.ItemID, *out.Refund))
		}
	}
	published = append(published, uc.unavailableEvents(marked, cmd.Actor)...)
	uc.publish(ctx, x, published...)

	res := &BulkSupplierResult{
		Ordered:           ordered,
		Unavailable:       unavailable,
		MarkedUnavailable: marked,
		InventoryFailures: failures,
		Versions:          make(map[string]int64, len(touched)),
	}
	for id, t := range touched {
		res.Versions[id] = t.order.Version
	}
	okO, failedO := countOutcomes(ordered)
	okU, failedU := countOutcomes(unavailable)
	res.Succeeded, res.Failed = okO+okU, failedO+failedU

	x.field("succeeded", res.Succeeded)
	x.field("failed", res.Failed)
	x.field("orders", len(touched))
	if res.Failed > 0 || len(failures) > 0 {
		x.status = "PARTIAL_FAILURE"
	}
	x.span.SetAttributes(
		attribute.Int("batch.succeeded", res.Succeeded),
		attribute.Int("batch.failed", res.Failed),
		attribute.Int("batch.orders", len(touched)),
	)
	return res, nil
}

func (uc *BulkOrderFromSupplierUseCase) unavailableEvents(refs []dominventory.Ref, actor string) []domoutbox.Event {
	events := make([]domoutbox.Event, 0, len(refs))
	for _, ref := range refs {
		events = append(events, dominventory.NewProductUnavailableEvent(ref, OutOfStockReason, actor, uc.deps.Now()))
	}
	return events
}

// markUnavailable calls the availability side-channel once per product/variant.
func (uc *BulkOrderFromSupplierUseCase) markUnavailable(ctx context.Context, x *execution, refs []dominventory.Ref, actor string) ([]dominventory.Ref, []InventoryFailure) {
	if uc.deps.Availability == nil || len(refs) == 0 {
		return nil, nil
	}
	unique := make(map[string]dominventory.Ref, len(refs))
	for _, r := range refs {
		if r.Validate() != nil {
			continue
		}
		unique[r.Key()] = r
	}

	var (
		mu       sync.Mutex
		marked   []dominventory.Ref
		failures []InventoryFailure
	)
	// the request may already be past its deadline; the side-channel gets its own budget
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(inventoryConcurrency)
	for _, key := range sortedKeys(unique) {
		ref := unique[key]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, inventoryTimeout)
			defer cancel()
			start := time.Now()
			err := uc.deps.Availability.MarkUnavailable(callCtx, ref)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uc.external(inventoryPeer, "mark_unavailable", "error", start)
				failures = append(failures, InventoryFailure{Ref: ref, Err: err})
				x.logger.Warn("inventory_mark_unavailable_failed",
					observability.F("product_id", ref.ProductID),
					observability.F("variant_sku", ref.VariantSKU),
					observability.F("actor", actor),
					observability.F("error", err.Error()),
				)
				return nil
			}
			uc.external(inventoryPeer, "mark_unavailable", "success", start)
			marked = append(marked, ref)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(marked, func(i, j int) bool { return marked[i].Key() < marked[j].Key() })
	return marked, failures
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// perItem reports whether err belongs to one reference rather than the whole batch.
func perItem(err error) bool {
	if isStoreFailure(err) {
		return false
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isStoreFailure(err error) bool {
	return errors.Is(err, domain.ErrVersionConflict) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
