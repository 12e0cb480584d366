package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *OrderStore, id string, itemIDs ...string) {
	t.Helper()
	items := make([]domain.Item, len(itemIDs))
	for i, itemID := range itemIDs {
		items[i] = domain.Item{ID: itemID, ProductID: "p-" + itemID, Price: decimal.NewFromInt(10), Quantity: 1}
	}
	o, err := domain.New(id, "n-"+id, "c", items, t0)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), o))
}

func TestInsertRejectsDuplicates(t *testing.T) {
	s := NewOrderStore()
	seed(t, s, "o1", "a")
	o, _ := s.Get(context.Background(), "o1")
	require.ErrorIs(t, s.Insert(context.Background(), o), domain.ErrConflict)
}

func TestGetMissing(t *testing.T) {
	_, err := NewOrderStore().Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitBumpsVersionOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")

	err := s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, "o1")
		if err != nil {
			return err
		}
		if _, _, err := o.TransitionItem("a", domain.ItemOrdered, "admin", "", t0); err != nil {
			return err
		}
		return tx.Commit(ctx, o, o.Version)
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
	it, _ := got.Item("a")
	require.Equal(t, domain.ItemOrdered, it.Status)
}

func TestFailedTxDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, _ := tx.LoadForUpdate(ctx, "o1")
		_, _, _ = o.TransitionItem("a", domain.ItemOrdered, "admin", "", t0)
		if err := tx.Commit(ctx, o, 0); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := s.Get(ctx, "o1")
	require.Equal(t, int64(0), got.Version)
	it, _ := got.Item("a")
	require.Equal(t, domain.ItemPending, it.Status)
}

func TestConcurrentWritersConflict(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")

	loaded := make(chan struct{})
	firstDone := make(chan struct{})
	var secondErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		secondErr = s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
			o, err := tx.LoadForUpdate(ctx, "o1")
			if err != nil {
				return err
			}
			close(loaded)
			<-firstDone
			return tx.Commit(ctx, o, o.Version)
		})
	}()

	<-loaded
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.LoadForUpdate(ctx, "o1")
		if err != nil {
			return err
		}
		return tx.Commit(ctx, o, o.Version)
	}))
	close(firstDone)
	<-done

	require.ErrorIs(t, secondErr, domain.ErrVersionConflict)
	got, _ := s.Get(ctx, "o1")
	require.Equal(t, int64(1), got.Version)
}

func TestConflictDetectedAtApplyTime(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")

	err := s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, _ := tx.LoadForUpdate(ctx, "o1")
		if err := tx.Commit(ctx, o, o.Version); err != nil {
			return err
		}
		// another writer lands between staging and apply
		return s.RunInTx(context.Background(), func(ctx context.Context, other domain.Tx) error {
			o2, _ := other.LoadForUpdate(ctx, "o1")
			return other.Commit(ctx, o2, o2.Version)
		})
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestMultipleOrdersInOneTx(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")
	seed(t, s, "o2", "b")

	err := s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		for _, itemID := range []string{"a", "b"} {
			o, err := tx.FindOrderContainingItem(ctx, itemID)
			if err != nil {
				return err
			}
			if _, err := o.OrderFromSupplier(itemID, domain.SupplierOrderDetails{}, "admin", t0); err != nil {
				return err
			}
			if err := tx.Commit(ctx, o, o.Version); err != nil {
				return err
			}
		}
		// staged state is visible to later reads in the same tx
		o, err := tx.LoadForUpdate(ctx, "o1")
		if err != nil {
			return err
		}
		v, err := tx.CurrentVersion(ctx, "o1")
		if err != nil {
			return err
		}
		if v != 1 || o.Version != 1 {
			return errors.New("staged version not visible")
		}
		return tx.Commit(ctx, o, v)
	})
	require.NoError(t, err)

	o1, _ := s.Get(ctx, "o1")
	o2, _ := s.Get(ctx, "o2")
	require.Equal(t, int64(2), o1.Version)
	require.Equal(t, int64(1), o2.Version)
}

func TestFindOrderContainingItemMissing(t *testing.T) {
	s := NewOrderStore()
	err := s.RunInTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		_, err := tx.FindOrderContainingItem(ctx, "ghost")
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTxTimeoutAborts(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore(WithTxTimeout(10 * time.Millisecond))
	seed(t, s, "o1", "a")

	err := s.RunInTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, _ := tx.LoadForUpdate(ctx, "o1")
		if err := tx.Commit(ctx, o, o.Version); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	got, _ := s.Get(ctx, "o1")
	require.Equal(t, int64(0), got.Version)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewOrderStore()
	seed(t, s, "o1", "a")

	o, _ := s.Get(ctx, "o1")
	_, _, _ = o.CancelItem("a", "x", "admin", "rf", t0)

	again, _ := s.Get(ctx, "o1")
	it, _ := again.Item("a")
	require.False(t, it.Cancelled())
}
