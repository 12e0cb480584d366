package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
)

// errorBody carries the inventory outcome too when a supplier batch aborted after the availability side-channel ran.
type errorBody struct {
	Error             string                `json:"error"`
	Message           string                `json:"message"`
	Retryable         bool                  `json:"retryable,omitempty"`
	Current           domain.ItemStatus     `json:"current,omitempty"`
	Attempted         domain.ItemStatus     `json:"attempted,omitempty"`
	Allowed           []domain.ItemStatus   `json:"allowed,omitempty"`
	MarkedUnavailable []inventoryRefDTO     `json:"marked_unavailable,omitempty"`
	InventoryFailures []inventoryFailureDTO `json:"inventory_failures,omitempty"`
}

// errorResponse maps err onto a status code and a body. Infrastructure failures never leak their text.
func errorResponse(err error) (int, errorBody) {
	body := errorBody{Error: apporder.ErrorCode(err), Message: err.Error()}

	var aborted *apporder.BatchAbortedError
	if errors.As(err, &aborted) {
		body.MarkedUnavailable, body.InventoryFailures = toInventoryOutcome(aborted.MarkedUnavailable, aborted.InventoryFailures)
	}

	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		body.Current, body.Attempted = te.Current, te.Attempted
		body.Allowed = te.Allowed
		if body.Allowed == nil {
			body.Allowed = []domain.ItemStatus{}
		}
		return http.StatusBadRequest, body
	case errors.Is(err, apporder.ErrActor):
		return http.StatusUnauthorized, body
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrAlreadyOrdered),
		errors.Is(err, domain.ErrAlreadyCancelled):
		return http.StatusBadRequest, body
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrConflict):
		body.Retryable = true
		return http.StatusConflict, body
	case errors.Is(err, context.DeadlineExceeded):
		body.Message = "the request did not complete in time"
		body.Retryable = true
		return http.StatusGatewayTimeout, body
	}
	body.Message = "internal error"
	return http.StatusInternalServerError, body
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_BODY", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
