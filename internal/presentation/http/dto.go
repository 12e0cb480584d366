package httppresentation

import (
	"time"

	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"
)

// Money is rendered as decimal strings throughout.

type updateItemStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type supplierOrderRequest struct {
	SupplierName           string           `json:"supplier_name"`
	SupplierOrderNumber    string           `json:"supplier_order_number"`
	SupplierTrackingNumber string           `json:"supplier_tracking_number"`
	Notes                  string           `json:"notes"`
	ActualCost             *decimal.Decimal `json:"actual_cost"`
}

type cancelItemRequest struct {
	Reason string `json:"reason"`
}

type bulkUpdateItemsRequest struct {
	ItemIDs []string `json:"item_ids"`
	Status  string   `json:"status"`
	Notes   string   `json:"notes"`
}

type itemRefRequest struct {
	OrderID    string           `json:"order_id"`
	ItemID     string           `json:"item_id"`
	ActualCost *decimal.Decimal `json:"actual_cost"`
}

type bulkSupplierRequest struct {
	SupplierName           string           `json:"supplier_name"`
	SupplierOrderNumber    string           `json:"supplier_order_number"`
	SupplierTrackingNumber string           `json:"supplier_tracking_number"`
	Notes                  string           `json:"notes"`
	Ordered                []itemRefRequest `json:"ordered"`
	Unavailable            []itemRefRequest `json:"unavailable"`
}

type overrideStatusRequest struct {
	Status string `json:"status"`
	Hold   bool   `json:"hold"`
	Note   string `json:"note"`
}

func toItemRefs(in []itemRefRequest) []apporder.ItemRef {
	out := make([]apporder.ItemRef, len(in))
	for i, r := range in {
		out[i] = apporder.ItemRef{OrderID: r.OrderID, ItemID: r.ItemID, ActualCost: r.ActualCost}
	}
	return out
}

type statusChangeDTO struct {
	Status    domain.ItemStatus `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
	ChangedBy string            `json:"changed_by"`
	Notes     string            `json:"notes,omitempty"`
}

type cancellationDTO struct {
	Reason          string          `json:"reason"`
	CancelledAt     time.Time       `json:"cancelled_at"`
	CancelledBy     string          `json:"cancelled_by"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	RefundProcessed bool            `json:"refund_processed"`
}

type supplierOrderDTO struct {
	SupplierName           string          `json:"supplier_name"`
	OrderedAt              time.Time       `json:"ordered_at"`
	OrderedBy              string          `json:"ordered_by"`
	SupplierOrderNumber    string          `json:"supplier_order_number,omitempty"`
	SupplierTrackingNumber string          `json:"supplier_tracking_number,omitempty"`
	ActualCost             decimal.Decimal `json:"actual_cost"`
	Notes                  string          `json:"notes,omitempty"`
}

type itemDTO struct {
	ID            string            `json:"id"`
	ProductID     string            `json:"product_id"`
	VariantSKU    string            `json:"variant_sku,omitempty"`
	Name          string            `json:"name"`
	Price         decimal.Decimal   `json:"price"`
	Quantity      int               `json:"quantity"`
	LineTotal     decimal.Decimal   `json:"line_total"`
	Status        domain.ItemStatus `json:"status"`
	StatusHistory []statusChangeDTO `json:"status_history"`
	Cancellation  *cancellationDTO  `json:"cancellation,omitempty"`
	SupplierOrder *supplierOrderDTO `json:"supplier_order,omitempty"`
}

func toStatusChanges(in []domain.StatusChange) []statusChangeDTO {
	out := make([]statusChangeDTO, len(in))
	for i, c := range in {
		out[i] = statusChangeDTO{Status: c.Status, ChangedAt: c.ChangedAt, ChangedBy: c.ChangedBy, Notes: c.Notes}
	}
	return out
}

func toCancellation(c *domain.Cancellation) *cancellationDTO {
	if c == nil || !c.Cancelled {
		return nil
	}
	return &cancellationDTO{
		Reason:          c.Reason,
		CancelledAt:     c.CancelledAt,
		CancelledBy:     c.CancelledBy,
		RefundAmount:    c.RefundAmount,
		RefundProcessed: c.RefundProcessed,
	}
}

func toSupplierOrder(so *domain.SupplierOrder) *supplierOrderDTO {
	if so == nil {
		return nil
	}
	return &supplierOrderDTO{
		SupplierName:           so.SupplierName,
		OrderedAt:              so.OrderedAt,
		OrderedBy:              so.OrderedBy,
		SupplierOrderNumber:    so.SupplierOrderNumber,
		SupplierTrackingNumber: so.SupplierTrackingNumber,
		ActualCost:             so.ActualCost,
		Notes:                  so.Notes,
	}
}

func toItem(it domain.Item) itemDTO {
	return itemDTO{
		ID:            it.ID,
		ProductID:     it.ProductID,
		VariantSKU:    it.VariantSKU,
		Name:          it.Name,
		Price:         it.Price,
		Quantity:      it.Quantity,
		LineTotal:     it.LineTotal(),
		Status:        it.Status,
		StatusHistory: toStatusChanges(it.StatusHistory),
		Cancellation:  toCancellation(it.Cancellation),
		SupplierOrder: toSupplierOrder(it.SupplierOrder),
	}
}

type refundDTO struct {
	ID          string              `json:"id"`
	Amount      decimal.Decimal     `json:"amount"`
	Reason      string              `json:"reason"`
	ItemIDs     []string            `json:"item_ids"`
	Status      domain.RefundStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	CreatedBy   string              `json:"created_by"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"`
	ProcessedBy string              `json:"processed_by,omitempty"`
}

func toRefund(r domain.Refund) refundDTO {
	return refundDTO{
		ID:          r.ID,
		Amount:      r.Amount,
		Reason:      r.Reason,
		ItemIDs:     r.ItemIDs,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		CreatedBy:   r.CreatedBy,
		ProcessedAt: r.ProcessedAt,
		ProcessedBy: r.ProcessedBy,
	}
}

func toRefunds(in []domain.Refund) []refundDTO {
	out := make([]refundDTO, len(in))
	for i, r := range in {
		out[i] = toRefund(r)
	}
	return out
}

type suggestionDTO struct {
	Current    domain.Status     `json:"current"`
	Suggested  domain.Status     `json:"suggested"`
	Confidence domain.Confidence `json:"confidence"`
	Reason     string            `json:"reason"`
}

func toSuggestion(s *domain.Suggestion) *suggestionDTO {
	if s == nil {
		return nil
	}
	return &suggestionDTO{Current: s.Current, Suggested: s.Suggested, Confidence: s.Confidence, Reason: s.Reason}
}

type minimumCheckDTO struct {
	Meets         bool            `json:"meets"`
	MeetsCount    bool            `json:"meets_count"`
	MeetsAmount   bool            `json:"meets_amount"`
	MissingCount  int             `json:"missing_count"`
	MissingAmount decimal.Decimal `json:"missing_amount"`
	ActiveCount   int             `json:"active_count"`
	ActiveTotal   decimal.Decimal `json:"active_total"`
	MinimumCount  int             `json:"minimum_count"`
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
}

func toMinimumCheck(c domain.MinimumCheck) minimumCheckDTO {
	return minimumCheckDTO{
		Meets:         c.Meets,
		MeetsCount:    c.MeetsCount,
		MeetsAmount:   c.MeetsAmount,
		MissingCount:  c.MissingCount,
		MissingAmount: c.MissingAmount,
		ActiveCount:   c.ActiveCount,
		ActiveTotal:   c.ActiveTotal,
		MinimumCount:  c.MinimumCount,
		MinimumAmount: c.MinimumAmount,
	}
}

type itemResponse struct {
	OrderID    string         `json:"order_id"`
	Item       itemDTO        `json:"item"`
	Changed    bool           `json:"changed"`
	Version    int64          `json:"version"`
	Suggestion *suggestionDTO `json:"suggestion,omitempty"`
}

func toItemResponse(r *apporder.ItemResult) itemResponse {
	return itemResponse{
		OrderID:    r.OrderID,
		Item:       toItem(r.Item),
		Changed:    r.Changed,
		Version:    r.Version,
		Suggestion: toSuggestion(r.Suggestion),
	}
}

type orderUpdateDTO struct {
	Total            decimal.Decimal `json:"total"`
	AdjustedTotal    decimal.Decimal `json:"adjusted_total"`
	TotalRefunds     decimal.Decimal `json:"total_refunds"`
	ActiveItemsCount int             `json:"active_items_count"`
	ActiveItemsTotal decimal.Decimal `json:"active_items_total"`
	MeetsMinimum     bool            `json:"meets_minimum"`
	MinimumCheck     minimumCheckDTO `json:"minimum_check"`
}

type cancelResponse struct {
	OrderID     string         `json:"order_id"`
	Item        itemDTO        `json:"item"`
	Refund      refundDTO      `json:"refund"`
	OrderUpdate orderUpdateDTO `json:"order_update"`
	Version     int64          `json:"version"`
	Suggestion  *suggestionDTO `json:"suggestion,omitempty"`
}

func toCancelResponse(r *apporder.CancelResult) cancelResponse {
	u := r.OrderUpdate
	return cancelResponse{
		OrderID: r.OrderID,
		Item:    toItem(r.Item),
		Refund:  toRefund(r.Refund),
		OrderUpdate: orderUpdateDTO{
			Total:            u.Total,
			AdjustedTotal:    u.AdjustedTotal,
			TotalRefunds:     u.TotalRefunds,
			ActiveItemsCount: u.ActiveItemsCount,
			ActiveItemsTotal: u.ActiveItemsTotal,
			MeetsMinimum:     u.MeetsMinimum,
			MinimumCheck:     toMinimumCheck(u.MinimumCheck),
		},
		Version:    r.Version,
		Suggestion: toSuggestion(r.Suggestion),
	}
}

type outcomeDTO struct {
	OrderID string     `json:"order_id"`
	ItemID  string     `json:"item_id"`
	OK      bool       `json:"ok"`
	Item    *itemDTO   `json:"item,omitempty"`
	Refund  *refundDTO `json:"refund,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func toOutcomes(in []apporder.ItemOutcome) []outcomeDTO {
	out := make([]outcomeDTO, len(in))
	for i, o := range in {
		d := outcomeDTO{OrderID: o.OrderID, ItemID: o.ItemID, OK: o.OK()}
		if o.Item != nil {
			it := toItem(*o.Item)
			d.Item = &it
		}
		if o.Refund != nil {
			rf := toRefund(*o.Refund)
			d.Refund = &rf
		}
		if o.Err != nil {
			_, body := errorResponse(o.Err)
			d.Error = &body
		}
		out[i] = d
	}
	return out
}

type bulkResponse struct {
	OrderID    string         `json:"order_id"`
	Results    []outcomeDTO   `json:"results"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Version    int64          `json:"version"`
	Suggestion *suggestionDTO `json:"suggestion,omitempty"`
}

func toBulkResponse(r *apporder.BulkResult) bulkResponse {
	return bulkResponse{
		OrderID:    r.OrderID,
		Results:    toOutcomes(r.Results),
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Version:    r.Version,
		Suggestion: toSuggestion(r.Suggestion),
	}
}

type inventoryRefDTO struct {
	ProductID  string `json:"product_id"`
	VariantSKU string `json:"variant_sku,omitempty"`
}

type inventoryFailureDTO struct {
	inventoryRefDTO
	Error string `json:"error"`
}

type bulkSupplierResponse struct {
	Ordered           []outcomeDTO          `json:"ordered"`
	Unavailable       []outcomeDTO          `json:"unavailable"`
	MarkedUnavailable []inventoryRefDTO     `json:"marked_unavailable"`
	InventoryFailures []inventoryFailureDTO `json:"inventory_failures,omitempty"`
	Succeeded         int                   `json:"succeeded"`
	Failed            int                   `json:"failed"`
	Versions          map[string]int64      `json:"versions"`
}

func toInventoryRef(r dominventory.Ref) inventoryRefDTO {
	return inventoryRefDTO{ProductID: r.ProductID, VariantSKU: r.VariantSKU}
}

func toInventoryOutcome(refs []dominventory.Ref, fs []apporder.InventoryFailure) ([]inventoryRefDTO, []inventoryFailureDTO) {
	marked := make([]inventoryRefDTO, len(refs))
	for i, ref := range refs {
		marked[i] = toInventoryRef(ref)
	}
	var failures []inventoryFailureDTO
	for _, f := range fs {
		failures = append(failures, inventoryFailureDTO{inventoryRefDTO: toInventoryRef(f.Ref), Error: f.Err.Error()})
	}
	return marked, failures
}

func toBulkSupplierResponse(r *apporder.BulkSupplierResult) bulkSupplierResponse {
	marked, failures := toInventoryOutcome(r.MarkedUnavailable, r.InventoryFailures)
	return bulkSupplierResponse{
		Ordered:           toOutcomes(r.Ordered),
		Unavailable:       toOutcomes(r.Unavailable),
		MarkedUnavailable: marked,
		InventoryFailures: failures,
		Succeeded:         r.Succeeded,
		Failed:            r.Failed,
		Versions:          r.Versions,
	}
}

type historyResponse struct {
	OrderID       string              `json:"order_id"`
	ItemID        string              `json:"item_id"`
	CurrentStatus domain.ItemStatus   `json:"current_status"`
	AllowedNext   []domain.ItemStatus `json:"allowed_next"`
	History       []statusChangeDTO   `json:"history"`
	Cancellation  *cancellationDTO    `json:"cancellation,omitempty"`
	SupplierOrder *supplierOrderDTO   `json:"supplier_order,omitempty"`
}

func toHistoryResponse(h *apporder.ItemHistory) historyResponse {
	return historyResponse{
		OrderID:       h.OrderID,
		ItemID:        h.ItemID,
		CurrentStatus: h.CurrentStatus,
		AllowedNext:   h.AllowedNext,
		History:       toStatusChanges(h.History),
		Cancellation:  toCancellation(h.Cancellation),
		SupplierOrder: toSupplierOrder(h.SupplierOrder),
	}
}

type timelineDTO struct {
	Status    domain.Status `json:"status"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Automated bool          `json:"automated"`
	Actor     string        `json:"actor,omitempty"`
}

type progressResponse struct {
	OrderID              string                    `json:"order_id"`
	OrderNumber          string                    `json:"order_number"`
	Status               domain.Status             `json:"status"`
	StatusHold           bool                      `json:"status_hold"`
	Overall              domain.Status             `json:"overall"`
	CompletionPercentage int                       `json:"completion_percentage"`
	NeedsAttention       bool                      `json:"needs_attention"`
	StaleItemIDs         []string                  `json:"stale_item_ids"`
	Counts               map[domain.ItemStatus]int `json:"counts"`
	ActiveCount          int                       `json:"active_count"`
	TotalCount           int                       `json:"total_count"`
	Total                decimal.Decimal           `json:"total"`
	TotalRefunds         decimal.Decimal           `json:"total_refunds"`
	AdjustedTotal        decimal.Decimal           `json:"adjusted_total"`
	MinimumCheck         minimumCheckDTO           `json:"minimum_check"`
	Refunds              []refundDTO               `json:"refunds"`
	Timeline             []timelineDTO             `json:"timeline"`
	Version              int64                     `json:"version"`
	Suggestion           *suggestionDTO            `json:"suggestion,omitempty"`
}

func toProgressResponse(p *apporder.OrderProgress) progressResponse {
	timeline := make([]timelineDTO, len(p.Timeline))
	for i, e := range p.Timeline {
		timeline[i] = timelineDTO{Status: e.Status, Message: e.Message, Timestamp: e.Timestamp, Automated: e.Automated, Actor: e.Actor}
	}
	stale := p.Progress.StaleItemIDs
	if stale == nil {
		stale = []string{}
	}
	return progressResponse{
		OrderID:              p.OrderID,
		OrderNumber:          p.OrderNumber,
		Status:               p.Status,
		StatusHold:           p.StatusHold,
		Overall:              p.Progress.Overall,
		CompletionPercentage: p.Progress.CompletionPercentage,
		NeedsAttention:       p.Progress.NeedsAttention,
		StaleItemIDs:         stale,
		Counts:               p.Progress.Counts,
		ActiveCount:          p.Progress.ActiveCount,
		TotalCount:           p.Progress.TotalCount,
		Total:                p.Pricing.Total,
		TotalRefunds:         p.Pricing.TotalRefunds,
		AdjustedTotal:        p.Pricing.AdjustedTotal,
		MinimumCheck:         toMinimumCheck(p.MinimumCheck),
		Refunds:              toRefunds(p.Refunds),
		Timeline:             timeline,
		Version:              p.Version,
		Suggestion:           toSuggestion(p.Suggestion),
	}
}

type statusResponse struct {
	OrderID    string         `json:"order_id"`
	Applied    bool           `json:"applied"`
	Previous   domain.Status  `json:"previous"`
	Status     domain.Status  `json:"status"`
	StatusHold bool           `json:"status_hold"`
	Suggestion *suggestionDTO `json:"suggestion,omitempty"`
	Version    int64          `json:"version"`
}

func toStatusResponse(r *apporder.StatusResult) statusResponse {
	return statusResponse{
		OrderID:    r.OrderID,
		Applied:    r.Applied,
		Previous:   r.Previous,
		Status:     r.Status,
		StatusHold: r.StatusHold,
		Suggestion: toSuggestion(r.Suggestion),
		Version:    r.Version,
	}
}

type refundResponse struct {
	OrderID string    `json:"order_id"`
	Refund  refundDTO `json:"refund"`
	Version int64     `json:"version"`
}

type availabilityResponse struct {
	ProductID   string `json:"product_id"`
	VariantSKU  string `json:"variant_sku,omitempty"`
	Unavailable bool   `json:"unavailable"`
}
