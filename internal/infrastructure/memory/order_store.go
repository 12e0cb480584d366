package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
)

const defaultTxTimeout = 10 * time.Second

// OrderStore is a versioned, transactional order store held in process memory.
type OrderStore struct {
	mu        sync.RWMutex
	orders    map[string]*domain.Order
	itemIndex map[string]string // item id -> order id
	txTimeout time.Duration
}

type Option func(*OrderStore)

// WithTxTimeout bounds every RunInTx call.
func WithTxTimeout(d time.Duration) Option {
	return func(s *OrderStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func NewOrderStore(opts ...Option) *OrderStore {
	s := &OrderStore{
		orders:    make(map[string]*domain.Order),
		itemIndex: make(map[string]string),
		txTimeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores a newly placed order as-is. Used by the placement flow and fixtures.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return domain.ErrConflict
	}
	s.put(o.Clone())
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, orderID)
	}
	return o.Clone(), nil
}

func (s *OrderStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx := &orderTx{store: s, staged: make(map[string]stagedWrite)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("order store: transaction aborted: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, w := range tx.staged {
		if cur := s.versionLocked(id); cur != w.expected {
			return fmt.Errorf("%w: order %s at version %d, expected %d", domain.ErrVersionConflict, id, cur, w.expected)
		}
	}
	for _, w := range tx.staged {
		s.put(w.order)
	}
	return nil
}

func (s *OrderStore) put(o *domain.Order) {
	s.orders[o.ID] = o
	for _, itemID := range o.Items.IDs() {
		s.itemIndex[itemID] = o.ID
	}
}

func (s *OrderStore) versionLocked(orderID string) int64 {
	if o, ok := s.orders[orderID]; ok {
		return o.Version
	}
	return -1
}

type stagedWrite struct {
	order    *domain.Order
	expected int64
}

type orderTx struct {
	store  *OrderStore
	mu     sync.Mutex
	staged map[string]stagedWrite
}

func (t *orderTx) LoadForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	if w, ok := t.staged[orderID]; ok {
		t.mu.Unlock()
		return w.order.Clone(), nil
	}
	t.mu.Unlock()
	return t.store.Get(ctx, orderID)
}

func (t *orderTx) CurrentVersion(ctx context.Context, orderID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.mu.Lock()
	if w, ok := t.staged[orderID]; ok {
		t.mu.Unlock()
		return w.order.Version, nil
	}
	t.mu.Unlock()

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	o, ok := t.store.orders[orderID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, orderID)
	}
	return o.Version, nil
}

func (t *orderTx) Commit(ctx context.Context, o *domain.Order, expectedVersion int64) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order store: id is required")
	}
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
	defer t.mu.Unlock()
	base := expectedVersion
	if w, ok := t.staged[o.ID]; ok {
		base = w.expected
	}
	t.staged[o.ID] = stagedWrite{order: next, expected: base}
	o.Version = next.Version
	return nil
}

func (t *orderTx) FindOrderContainingItem(ctx context.Context, itemID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	orderID, ok := t.store.itemIndex[itemID]
	t.store.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no order contains item %s", domain.ErrNotFound, itemID)
	}
	return t.LoadForUpdate(ctx, orderID)
}
