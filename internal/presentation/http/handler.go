package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zhima-Mochi/dropship-fulfillment/internal/application"
	appinventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/inventory"
	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	componentHTTPHandler = "http_server"
	maxBodyBytes         = 1 << 20
	requestTimeout       = 30 * time.Second
)

// UseCases holds every admin operation the router exposes.
type UseCases struct {
	UpdateItemStatus      application.UseCase[apporder.UpdateItemStatusCommand, *apporder.ItemResult]
	OrderFromSupplier     application.UseCase[apporder.OrderFromSupplierCommand, *apporder.ItemResult]
	CancelItem            application.UseCase[apporder.CancelItemCommand, *apporder.CancelResult]
	BulkUpdateItems       application.UseCase[apporder.BulkUpdateItemsCommand, *apporder.BulkResult]
	BulkOrderFromSupplier application.UseCase[apporder.BulkOrderFromSupplierCommand, *apporder.BulkSupplierResult]
	GetItemHistory        application.UseCase[apporder.GetItemHistoryQuery, *apporder.ItemHistory]
	GetOrderProgress      application.UseCase[apporder.GetOrderProgressQuery, *apporder.OrderProgress]
	ApplySuggestedStatus  application.UseCase[apporder.ApplySuggestedStatusCommand, *apporder.StatusResult]
	OverrideOrderStatus   application.UseCase[apporder.OverrideOrderStatusCommand, *apporder.StatusResult]
	ProcessRefund         application.UseCase[apporder.ProcessRefundCommand, *apporder.RefundResult]
	CheckAvailability     application.UseCase[appinventory.CheckAvailabilityQuery, *appinventory.AvailabilityResult]
}

// NewUseCases builds every use case over the same dependencies.
func NewUseCases(deps apporder.Dependencies) UseCases {
	return UseCases{
		UpdateItemStatus:      apporder.NewUpdateItemStatusUseCase(deps),
		OrderFromSupplier:     apporder.NewOrderFromSupplierUseCase(deps),
		CancelItem:            apporder.NewCancelItemUseCase(deps),
		BulkUpdateItems:       apporder.NewBulkUpdateItemsUseCase(deps),
		BulkOrderFromSupplier: apporder.NewBulkOrderFromSupplierUseCase(deps),
		GetItemHistory:        apporder.NewGetItemHistoryUseCase(deps),
		GetOrderProgress:      apporder.NewGetOrderProgressUseCase(deps),
		ApplySuggestedStatus:  apporder.NewApplySuggestedStatusUseCase(deps),
		OverrideOrderStatus:   apporder.NewOverrideOrderStatusUseCase(deps),
		ProcessRefund:         apporder.NewProcessRefundUseCase(deps),
		CheckAvailability:     appinventory.NewCheckAvailabilityUseCase(deps.Availability, deps.Tel),
	}
}

type Handler struct {
	uc  UseCases
	log observability.Logger
	tel observability.Observability
}

func NewHandler(uc UseCases, logger observability.Logger, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if logger == nil {
		logger = tel.Logger()
	}
	return &Handler{
		uc:  uc,
		log: logger.With(observability.F("component", componentHTTPHandler)),
		tel: tel,
	}
}

// Router wires: Observability (trace, request logger, metrics, access log) → Recoverer → routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(ObservabilityMiddleware(h.log, h.tel))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireActor)
		r.Use(chimw.Timeout(requestTimeout))

		r.Post("/supplier-orders", h.handleBulkOrderFromSupplier)
		r.Get("/inventory/{productID}/availability", h.handleCheckAvailability)
		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/progress", h.handleGetOrderProgress)
			r.Put("/status", h.handleOverrideOrderStatus)
			r.Post("/status/apply-suggestion", h.handleApplySuggestedStatus)
			r.Post("/refunds/{refundID}/process", h.handleProcessRefund)
			r.Patch("/items/status", h.handleBulkUpdateItems)
			r.Route("/items/{itemID}", func(r chi.Router) {
				r.Patch("/status", h.handleUpdateItemStatus)
				r.Post("/supplier-order", h.handleOrderFromSupplier)
				r.Post("/cancel", h.handleCancelItem)
				r.Get("/history", h.handleGetItemHistory)
			})
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleUpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	var req updateItemStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.UpdateItemStatus.Execute(r.Context(), apporder.UpdateItemStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ItemID:  chi.URLParam(r, "itemID"),
		Status:  req.Status,
		Notes:   req.Notes,
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(res))
}

func (h *Handler) handleOrderFromSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.OrderFromSupplier.Execute(r.Context(), apporder.OrderFromSupplierCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ItemID:  chi.URLParam(r, "itemID"),
		SupplierOrderData: apporder.SupplierOrderData{
			SupplierName:           req.SupplierName,
			SupplierOrderNumber:    req.SupplierOrderNumber,
			SupplierTrackingNumber: req.SupplierTrackingNumber,
			Notes:                  req.Notes,
		},
		ActualCost: req.ActualCost,
		Actor:      actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(res))
}

func (h *Handler) handleCancelItem(w http.ResponseWriter, r *http.Request) {
	var req cancelItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.CancelItem.Execute(r.Context(), apporder.CancelItemCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ItemID:  chi.URLParam(r, "itemID"),
		Reason:  req.Reason,
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCancelResponse(res))
}

func (h *Handler) handleGetItemHistory(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.GetItemHistory.Execute(r.Context(), apporder.GetItemHistoryQuery{
		OrderID: chi.URLParam(r, "orderID"),
		ItemID:  chi.URLParam(r, "itemID"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(res))
}

func (h *Handler) handleBulkUpdateItems(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateItemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.BulkUpdateItems.Execute(r.Context(), apporder.BulkUpdateItemsCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ItemIDs: req.ItemIDs,
		Status:  req.Status,
		Notes:   req.Notes,
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(res))
}

func (h *Handler) handleBulkOrderFromSupplier(w http.ResponseWriter, r *http.Request) {
	var req bulkSupplierRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.BulkOrderFromSupplier.Execute(r.Context(), apporder.BulkOrderFromSupplierCommand{
		SupplierName: req.SupplierName,
		Ordered:      toItemRefs(req.Ordered),
		Unavailable:  toItemRefs(req.Unavailable),
		SupplierOrderData: apporder.SupplierOrderData{
			SupplierName:           req.SupplierName,
			SupplierOrderNumber:    req.SupplierOrderNumber,
			SupplierTrackingNumber: req.SupplierTrackingNumber,
			Notes:                  req.Notes,
		},
		Actor: actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkSupplierResponse(res))
}

func (h *Handler) handleGetOrderProgress(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.GetOrderProgress.Execute(r.Context(), apporder.GetOrderProgressQuery{
		OrderID: chi.URLParam(r, "orderID"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(res))
}

func (h *Handler) handleApplySuggestedStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.ApplySuggestedStatus.Execute(r.Context(), apporder.ApplySuggestedStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(res))
}

func (h *Handler) handleOverrideOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req overrideStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	res, err := h.uc.OverrideOrderStatus.Execute(r.Context(), apporder.OverrideOrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  req.Status,
		Hold:    req.Hold,
		Note:    req.Note,
		Actor:   actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(res))
}

func (h *Handler) handleProcessRefund(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.ProcessRefund.Execute(r.Context(), apporder.ProcessRefundCommand{
		OrderID:  chi.URLParam(r, "orderID"),
		RefundID: chi.URLParam(r, "refundID"),
		Actor:    actorFrom(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refundResponse{OrderID: res.OrderID, Refund: toRefund(res.Refund), Version: res.Version})
}

func (h *Handler) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.CheckAvailability.Execute(r.Context(), appinventory.CheckAvailabilityQuery{
		ProductID:  chi.URLParam(r, "productID"),
		VariantSKU: r.URL.Query().Get("variant_sku"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		ProductID:   res.ProductID,
		VariantSKU:  res.VariantSKU,
		Unavailable: res.Unavailable,
	})
}

// decodeJSON reads exactly one JSON object with no unknown fields from a bounded body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
