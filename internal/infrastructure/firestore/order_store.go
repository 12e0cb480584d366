// Package firestore persists order aggregates as Firestore documents.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/docstore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultCollection = "orders"
	defaultTxTimeout  = 10 * time.Second
)

type OrderStore struct {
	client     *firestore.Client
	collection string
	txTimeout  time.Duration
}

type Option func(*OrderStore)

func WithCollection(name string) Option {
	return func(s *OrderStore) {
		if name != "" {
			s.collection = name
		}
	}
}

func WithTxTimeout(d time.Duration) Option {
	return func(s *OrderStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func NewOrderStore(client *firestore.Client, opts ...Option) *OrderStore {
	s := &OrderStore{client: client, collection: DefaultCollection, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrderStore) coll() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Insert creates the document; an existing id is a conflict.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_, err := s.coll().Doc(o.ID).Create(ctx, docstore.FromOrder(o))
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, o.ID)
	}
	return wrapError("insert", err)
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	snap, err := s.coll().Doc(orderID).Get(ctx)
	if err != nil {
		return nil, notFoundOr(orderID, wrapError("get", err))
	}
	return decode(snap)
}

// RunInTx runs fn in a single-attempt Firestore transaction. Firestore requires every read to
// precede every write, so commits are buffered and written when fn returns.
func (s *OrderStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		tx := &orderTx{store: s, tx: ftx, read: map[string]int64{}, staged: map[string]*domain.Order{}}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.flush()
	}, firestore.MaxAttempts(1))
	if err != nil && ctx.Err() != nil && !isDomainError(err) {
		return fmt.Errorf("firestore: transaction aborted: %w", ctx.Err())
	}
	return wrapError("transaction", err)
}

type orderTx struct {
	store *OrderStore
	tx    *firestore.Transaction

	mu     sync.Mutex
	read   map[string]int64
	staged map[string]*domain.Order
}

func (t *orderTx) LoadForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	t.mu.Lock()
	if o, ok := t.staged[orderID]; ok {
		t.mu.Unlock()
		return o.Clone(), nil
	}
	t.mu.Unlock()

	snap, err := t.tx.Get(t.store.coll().Doc(orderID))
	if err != nil {
		return nil, notFoundOr(orderID, wrapError("load", err))
	}
	o, err := decode(snap)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.read[orderID] = o.Version
	t.mu.Unlock()
	return o, nil
}

// CurrentVersion answers from the transaction's read set; Firestore aborts the commit if
// the document changed after it was read.
func (t *orderTx) CurrentVersion(ctx context.Context, orderID string) (int64, error) {
	t.mu.Lock()
	if o, ok := t.staged[orderID]; ok {
		t.mu.Unlock()
		return o.Version, nil
	}
	v, ok := t.read[orderID]
	t.mu.Unlock()
	if ok {
		return v, nil
	}
	o, err := t.LoadForUpdate(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return o.Version, nil
}

func (t *orderTx) Commit(ctx context.Context, o *domain.Order, expectedVersion int64) error {
	cur, err := t.CurrentVersion(ctx, o.ID)
	if err != nil {
		return err
	}
	if cur != expectedVersion {
		return fmt.Errorf("%w: order %s at version %d, expected %d", domain.ErrVersionConflict, o.ID, cur, expectedVersion)
	}
	next := o.Clone()
	next.Version = expectedVersion + 1

	t.mu.Lock()
	t.staged[o.ID] = next
	t.mu.Unlock()
	o.Version = next.Version
	return nil
}

func (t *orderTx) FindOrderContainingItem(ctx context.Context, itemID string) (*domain.Order, error) {
	t.mu.Lock()
	for _, o := range t.staged {
		if o.Items.Has(itemID) {
			t.mu.Unlock()
			return o.Clone(), nil
		}
	}
	t.mu.Unlock()

	q := t.store.coll().Where("itemIds", "array-contains", itemID).Limit(1)
	iter := t.tx.Documents(q)
	defer iter.Stop()
	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: no order contains item %s", domain.ErrNotFound, itemID)
	}
	if err != nil {
		return nil, wrapError("find item", err)
	}
	o, err := decode(snap)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.read[o.ID] = o.Version
	t.mu.Unlock()
	return o, nil
}

func (t *orderTx) flush() error {
	ids := make([]string, 0, len(t.staged))
	for id := range t.staged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := t.tx.Set(t.store.coll().Doc(id), docstore.FromOrder(t.staged[id])); err != nil {
			return wrapError("set", err)
		}
	}
	return nil
}

func decode(snap *firestore.DocumentSnapshot) (*domain.Order, error) {
	var doc docstore.Order
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode %s: %w", snap.Ref.ID, err)
	}
	return doc.ToOrder()
}

func notFoundOr(orderID string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, orderID)
	}
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrAlreadyOrdered) ||
		errors.Is(err, domain.ErrAlreadyCancelled) ||
		errors.Is(err, domain.ErrVersionConflict) ||
		errors.Is(err, domain.ErrItemNotFound)
}

// wrapError classifies gRPC status codes; errors that already carry a domain kind pass through.
func wrapError(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: firestore %s", domain.ErrNotFound, op)
	case codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: firestore %s: %v", domain.ErrVersionConflict, op, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("firestore %s: %w", op, context.DeadlineExceeded)
	case codes.Canceled:
		return fmt.Errorf("firestore %s: %w", op, context.Canceled)
	}
	return fmt.Errorf("firestore %s: %w", op, err)
}
