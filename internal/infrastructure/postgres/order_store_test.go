package postgres

import (
	"errors"
	"fmt"
	"testing"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestConflictOrMapsLockFailures(t *testing.T) {
	for _, code := range []string{sqlStateSerialization, sqlStateDeadlock} {
		err := conflictOr(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: code, Message: "could not serialize"}))
		require.ErrorIs(t, err, domain.ErrVersionConflict)
	}

	other := errors.New("connection refused")
	require.Equal(t, other, conflictOr(other))
	require.NotErrorIs(t, conflictOr(&pgconn.PgError{Code: "42P01"}), domain.ErrVersionConflict)
}
