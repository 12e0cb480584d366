// Package postgres persists order aggregates as JSONB documents with a version column.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/docstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the orders table. item_ids backs FindOrderContainingItem.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id           TEXT PRIMARY KEY,
	order_number TEXT NOT NULL,
	version      BIGINT NOT NULL,
	item_ids     TEXT[] NOT NULL,
	doc          JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS orders_item_ids_idx ON orders USING GIN (item_ids);
`

const (
	defaultTxTimeout = 10 * time.Second

	// serialization_failure and deadlock_detected both mean another writer won.
	sqlStateSerialization = "40001"
	sqlStateDeadlock      = "40P01"
	sqlStateUniqueViolate = "23505"
)

type OrderStore struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

type Option func(*OrderStore)

func WithTxTimeout(d time.Duration) Option {
	return func(s *OrderStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func NewOrderStore(pool *pgxpool.Pool, opts ...Option) *OrderStore {
	s := &OrderStore{pool: pool, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens a pool and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pool, nil
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Insert stores a new order at its current version.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) error {
	doc, err := json.Marshal(docstore.FromOrder(o))
	if err != nil {
		return fmt.Errorf("postgres: encode order %s: %w", o.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (id, order_number, version, item_ids, doc) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.OrderNumber, o.Version, o.Items.IDs(), doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolate {
			return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, o.ID)
		}
		return fmt.Errorf("postgres: insert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, s.pool, `SELECT doc, version FROM orders WHERE id = $1`, orderID)
}

func (s *OrderStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = pgTx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &orderTx{tx: pgTx}); err != nil {
		return conflictOr(err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("postgres: transaction aborted: %w", err)
	}
	if err := pgTx.Commit(ctx); err != nil {
		return conflictOr(fmt.Errorf("postgres: commit: %w", err))
	}
	return nil
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) LoadForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	return loadOrder(ctx, t.tx, `SELECT doc, version FROM orders WHERE id = $1 FOR UPDATE`, orderID)
}

func (t *orderTx) CurrentVersion(ctx context.Context, orderID string) (int64, error) {
	var v int64
	err := t.tx.QueryRow(ctx, `SELECT version FROM orders WHERE id = $1`, orderID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotFound, orderID)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: read version of %s: %w", orderID, err)
	}
	return v, nil
}

func (t *orderTx) Commit(ctx context.Context, o *domain.Order, expectedVersion int64) error {
	next := o.Clone()
	next.Version = expectedVersion + 1
	doc, err := json.Marshal(docstore.FromOrder(next))
	if err != nil {
		return fmt.Errorf("postgres: encode order %s: %w", o.ID, err)
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET doc = $2, item_ids = $3, version = $4, updated_at = now()
		 WHERE id = $1 AND version = $5`,
		o.ID, doc, next.Items.IDs(), next.Version, expectedVersion,
	)
	if err != nil {
		return conflictOr(fmt.Errorf("postgres: update order %s: %w", o.ID, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s is no longer at version %d", domain.ErrVersionConflict, o.ID, expectedVersion)
	}
	o.Version = next.Version
	return nil
}

func (t *orderTx) FindOrderContainingItem(ctx context.Context, itemID string) (*domain.Order, error) {
	o, err := loadOrder(ctx, t.tx,
		`SELECT doc, version FROM orders WHERE item_ids @> ARRAY[$1]::text[] LIMIT 1 FOR UPDATE`, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no order contains item %s", domain.ErrNotFound, itemID)
	}
	return o, err
}

func loadOrder(ctx context.Context, q pgxQuerier, query, arg string) (*domain.Order, error) {
	var (
		raw     []byte
		version int64
	)
	err := q.QueryRow(ctx, query, arg).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, arg)
	}
	if err != nil {
		return nil, conflictOr(fmt.Errorf("postgres: load %s: %w", arg, err))
	}
	var doc docstore.Order
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("postgres: decode %s: %w", arg, err)
	}
	o, err := doc.ToOrder()
	if err != nil {
		return nil, err
	}
	// the column is authoritative; the document copy is informational
	o.Version = version
	return o, nil
}

// conflictOr turns lock and serialization failures into version conflicts.
func conflictOr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == sqlStateSerialization || pgErr.Code == sqlStateDeadlock) {
		return fmt.Errorf("%w: %s", domain.ErrVersionConflict, pgErr.Message)
	}
	return err
}
