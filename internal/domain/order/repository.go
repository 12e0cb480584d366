package order

import "context"

// Store is the system of record for Order aggregates.
type Store interface {
	// Get returns a read-only snapshot outside any transaction.
	Get(ctx context.Context, orderID string) (*Order, error)
	// RunInTx runs fn in one transaction. Writes staged through tx become visible only if fn returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view handed to RunInTx callbacks.
type Tx interface {
	// LoadForUpdate returns a private copy of the order; its Version is the expected-version token.
	LoadForUpdate(ctx context.Context, orderID string) (*Order, error)
	// CurrentVersion re-reads the persisted version inside the transaction.
	CurrentVersion(ctx context.Context, orderID string) (int64, error)
	// Commit stages the order with version expectedVersion+1, or fails with ErrVersionConflict.
	Commit(ctx context.Context, o *Order, expectedVersion int64) error
	FindOrderContainingItem(ctx context.Context, itemID string) (*Order, error)
}
