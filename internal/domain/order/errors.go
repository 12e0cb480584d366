package order

import "errors"

var (
	ErrNotFound          = errors.New("order: not found")
	ErrItemNotFound      = errors.New("order: item not found")
	ErrValidation        = errors.New("order: validation failed")
	ErrInvalidTransition = errors.New("order: invalid transition")
	ErrInvalidState      = errors.New("order: invalid item state")
	ErrAlreadyOrdered    = errors.New("order: item already ordered from supplier")
	ErrAlreadyCancelled  = errors.New("order: item already cancelled")
	ErrVersionConflict   = errors.New("order: version conflict")
	ErrConflict          = errors.New("order: already exists")
)

// IsNotFound matches both a missing order and a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrItemNotFound)
}
