package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
)

// MaxBatchSize caps every bulk request.
const MaxBatchSize = 100

var (
	ErrRepository = errors.New("order: repository failure")
	ErrSettings   = errors.New("order: threshold settings unavailable")
	ErrActor      = errors.New("order: actor is required")
)

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrItemNotFound,
	domain.ErrValidation,
	domain.ErrInvalidTransition,
	domain.ErrInvalidState,
	domain.ErrAlreadyOrdered,
	domain.ErrAlreadyCancelled,
	domain.ErrVersionConflict,
	domain.ErrConflict,
}

// wrapRepositoryError keeps domain and context errors intact and marks everything else Unexpected.
func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, ErrActor) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}

// ErrorCode names the kind of err for logs, span status and API error bodies.
func ErrorCode(err error) string {
	var te *domain.TransitionError
	switch {
	case err == nil:
		return "OK"
	case errors.As(err, &te):
		return "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrItemNotFound):
		return "ITEM_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, domain.ErrAlreadyOrdered):
		return "ALREADY_ORDERED"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return "ALREADY_CANCELLED"
	case errors.Is(err, domain.ErrVersionConflict):
		return "VERSION_CONFLICT"
	case errors.Is(err, ErrActor):
		return "ACTOR_REQUIRED"
	case errors.Is(err, ErrSettings):
		return "SETTINGS_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return "TX_TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CONTEXT_CANCELED"
	}
	return "REPOSITORY_FAILED"
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return ErrActor
	}
	return nil
}

func checkLength(field, value string, max int) error {
	if len([]rune(value)) > max {
		return newValidation(fmt.Sprintf("%s exceeds %d characters", field, max))
	}
	return nil
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return newValidation(field + " is required")
	}
	return nil
}
