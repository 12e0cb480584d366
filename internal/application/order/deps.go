package order

import (
	"time"

	"github.com/Zhima-Mochi/dropship-fulfillment/internal/application"
	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
)

// Dependencies are shared by every item lifecycle use case.
type Dependencies struct {
	Store        domain.Store
	Settings     settings.Source
	Availability dominventory.Availability
	Publisher    domoutbox.Publisher
	Tel          observability.Observability

	// Now and NewRefundID default to the wall clock and ULID refund ids.
	Now         func() time.Time
	NewRefundID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Tel == nil {
		d.Tel = observability.Nop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewRefundID == nil {
		d.NewRefundID = domain.NewRefundID
	}
	return d
}

var (
	_ application.UseCase[UpdateItemStatusCommand, *ItemResult]              = (*UpdateItemStatusUseCase)(nil)
	_ application.UseCase[OrderFromSupplierCommand, *ItemResult]             = (*OrderFromSupplierUseCase)(nil)
	_ application.UseCase[CancelItemCommand, *CancelResult]                  = (*CancelItemUseCase)(nil)
	_ application.UseCase[BulkUpdateItemsCommand, *BulkResult]               = (*BulkUpdateItemsUseCase)(nil)
	_ application.UseCase[BulkOrderFromSupplierCommand, *BulkSupplierResult] = (*BulkOrderFromSupplierUseCase)(nil)
	_ application.UseCase[GetItemHistoryQuery, *ItemHistory]                 = (*GetItemHistoryUseCase)(nil)
	_ application.UseCase[GetOrderProgressQuery, *OrderProgress]             = (*GetOrderProgressUseCase)(nil)
	_ application.UseCase[ApplySuggestedStatusCommand, *StatusResult]        = (*ApplySuggestedStatusUseCase)(nil)
	_ application.UseCase[OverrideOrderStatusCommand, *StatusResult]         = (*OverrideOrderStatusUseCase)(nil)
	_ application.UseCase[ProcessRefundCommand, *RefundResult]               = (*ProcessRefundUseCase)(nil)
)
