package sqlite3

import (
	"context"
	"errors"
	"testing"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/stretchr/testify/require"
)

func testRequireValue(t *testing.T, s kv.Store, key, expected string) {
	t.Helper()
	val, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, expected, val, "key %q", key)
}

func TestBatch(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s *Store) {
		as := require.New(t)
		ctx := context.Background()

		as.NoError(s.Batch(ctx, func(b kv.Store) error {
			if err := b.Set(ctx, "a", "1"); err != nil {
				return err
			}
			return b.Set(ctx, "b", "2")
		}))
		testRequireValue(t, s, "a", "1")
		testRequireValue(t, s, "b", "2")

		boom := errors.New("boom")
		err := s.Batch(ctx, func(b kv.Store) error {
			if err := b.Set(ctx, "c", "3"); err != nil {
				return err
			}
			testRequireValue(t, b, "c", "3")
			return boom
		})
		as.ErrorIs(err, boom)
		testRequireValue(t, s, "c", "")
		as.Nil(s.active.Load())
	})
}

func TestBatchNested(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s *Store) {
		as := require.New(t)
		ctx := context.Background()

		as.NoError(s.Batch(ctx, func(outer kv.Store) error {
			if err := outer.Set(ctx, "outer", "v"); err != nil {
				return err
			}
			err := outer.Batch(ctx, func(inner kv.Store) error {
				if err := inner.Set(ctx, "inner", "v"); err != nil {
					return err
				}
				return errors.New("discard inner")
			})
			as.Error(err)

			_, err = outer.CreateTransaction(ctx)
			as.ErrorIs(err, kv.ErrInvalidState)
			return nil
		}))

		testRequireValue(t, s, "outer", "v")
		testRequireValue(t, s, "inner", "")
	})
}

func TestBatchPanic(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s := testGetStore(t, func(o *kv.Options) {
		o.InMemory = true
	})

	as.Panics(func() {
		s.Batch(ctx, func(b kv.Store) error {
			b.Set(ctx, "k", "v")
			panic("abandoned")
		})
	})

	testRequireValue(t, s, "k", "")
	as.Nil(s.active.Load())
	as.NoError(s.Set(ctx, "k", "v"))
	testRequireValue(t, s, "k", "v")
}

func TestTransactionCloseRollsBack(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s *Store) {
		as := require.New(t)
		ctx := context.Background()

		txn, err := s.CreateTransaction(ctx)
		as.NoError(err)

		as.NoError(s.Set(ctx, "k", "v"))
		testRequireValue(t, s, "k", "v")

		as.NoError(txn.Close())
		as.NoError(txn.Close())

		testRequireValue(t, s, "k", "")

		as.ErrorIs(txn.Commit(), kv.ErrInvalidState)
		as.ErrorIs(txn.Rollback(), kv.ErrInvalidState)
	})
}

func TestTransactionCommitAndRollback(t *testing.T) {
	forEachBackend(t, nil, func(t *testing.T, s *Store) {
		as := require.New(t)
		ctx := context.Background()

		txn, err := s.CreateTransaction(ctx)
		as.NoError(err)
		defer txn.Close()

		as.NoError(s.Set(ctx, "A", "1"))
		as.NoError(txn.Commit())

		as.NoError(s.Set(ctx, "B", "2"))
		as.NoError(txn.Rollback())

		as.NoError(s.Set(ctx, "C", "3"))
		testRequireValue(t, s, "C", "3")
		as.NoError(txn.Close())

		testRequireValue(t, s, "A", "1")
		testRequireValue(t, s, "B", "")
		testRequireValue(t, s, "C", "")
	})
}

func TestTransactionSingleHandle(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s := testGetStore(t, func(o *kv.Options) {
		o.InMemory = true
	})

	txn, err := s.CreateTransaction(ctx)
	as.NoError(err)

	_, err = s.CreateTransaction(ctx)
	as.ErrorIs(err, kv.ErrInvalidState)

	as.NoError(txn.Close())

	txn, err = s.CreateTransaction(ctx)
	as.NoError(err)
	as.NoError(txn.Close())
}

func TestTransactionBatchSavepoint(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	s := testGetStore(t, func(o *kv.Options) {
		o.InMemory = true
	})

	txn, err := s.CreateTransaction(ctx)
	as.NoError(err)
	defer txn.Close()

	as.NoError(s.Set(ctx, "kept", "v"))
	as.Error(s.Batch(ctx, func(b kv.Store) error {
		if err := b.Set(ctx, "dropped", "v"); err != nil {
			return err
		}
		return errors.New("discard")
	}))
	as.NoError(s.Batch(ctx, func(b kv.Store) error {
		return b.Set(ctx, "batched", "v")
	}))
	as.NoError(txn.Commit())
	as.NoError(txn.Close())

	testRequireValue(t, s, "kept", "v")
	testRequireValue(t, s, "batched", "v")
	testRequireValue(t, s, "dropped", "")
}

func TestTransactionOutlivesContext(t *testing.T) {
	as := require.New(t)
	s := testGetStore(t, func(o *kv.Options) {
		o.InMemory = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	txn, err := s.CreateTransaction(ctx)
	as.NoError(err)
	cancel()

	as.NoError(s.Set(context.Background(), "k", "v"))
	as.NoError(txn.Commit())
	as.NoError(txn.Close())

	testRequireValue(t, s, "k", "v")
}

func TestCloseReleasesTransaction(t *testing.T) {
	as := require.New(t)
	ctx := context.Background()
	path := testDatabasePath(t)

	s, err := Open(ctx, func(o *kv.Options) {
		o.DatabaseName = path
		o.Logger = testLogger(t)
	})
	as.NoError(err)

	as.NoError(s.Set(ctx, "committed", "v"))

	txn, err := s.CreateTransaction(ctx)
	as.NoError(err)
	as.NoError(s.Set(ctx, "abandoned", "v"))
	as.NoError(s.Close())

	as.ErrorIs(txn.Commit(), kv.ErrInvalidState)
	as.NoError(txn.Close())

	s = testGetStore(t, func(o *kv.Options) {
		o.DatabaseName = path
	})
	testRequireValue(t, s, "committed", "v")
	testRequireValue(t, s, "abandoned", "")
}
