package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.miragespace.co/kvlite/spec/kv"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Batch runs action in a transaction, committed when action returns nil and rolled back
// otherwise. Inside an open Transaction handle or another Batch it nests as a savepoint.
func (s *Store) Batch(ctx context.Context, action func(kv.Store) error) error {
	if err := kv.MustNotBeNil("action", action); err != nil {
		return err
	}
	db, err := s.conn(ctx, "batch")
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		prev := s.active.Swap(tx)
		defer s.active.Store(prev)
		return action(s)
	})
}

// Txn is the Transaction handle of a Store.
type Txn struct {
	store  *Store
	logger *zap.Logger
	ctx    context.Context
	tx     atomic.Pointer[gorm.DB]
	closed *atomic.Bool
}

var _ kv.Transaction = (*Txn)(nil)

// CreateTransaction begins a transaction that every operation on the store runs in
// until the handle is closed. Only one handle may be open at a time.
func (s *Store) CreateTransaction(ctx context.Context) (kv.Transaction, error) {
	if _, err := s.conn(ctx, "create transaction"); err != nil {
		return nil, err
	}
	if s.active.Load() != nil {
		return nil, fmt.Errorf("%w: a transaction is already active", kv.ErrInvalidState)
	}

	t := &Txn{
		store:  s,
		logger: s.logger,
		// the handle outlives the call that created it
		ctx:    context.WithoutCancel(ctx),
		closed: atomic.NewBool(false),
	}
	if !s.txn.CompareAndSwap(nil, t) {
		return nil, fmt.Errorf("%w: a transaction is already active", kv.ErrInvalidState)
	}

	tx, err := t.begin()
	if err != nil {
		s.txn.CompareAndSwap(t, nil)
		return nil, err
	}
	t.tx.Store(tx)
	s.active.Store(tx)

	return t, nil
}

func (t *Txn) begin() (*gorm.DB, error) {
	tx := t.store.db.WithContext(t.ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// Commit commits the pending writes and begins the next transaction.
func (t *Txn) Commit() error {
	return t.restart("commit", func(tx *gorm.DB) error {
		return tx.Commit().Error
	})
}

// Rollback discards the pending writes and begins the next transaction.
func (t *Txn) Rollback() error {
	return t.restart("rollback", func(tx *gorm.DB) error {
		return tx.Rollback().Error
	})
}

func (t *Txn) restart(op string, end func(*gorm.DB) error) error {
	if t.closed.Load() || t.store.closed.Load() {
		return fmt.Errorf("%w: cannot %s a closed transaction", kv.ErrInvalidState, op)
	}
	tx := t.tx.Load()
	if err := end(tx); err != nil {
		t.Close()
		return err
	}
	next, err := t.begin()
	if err != nil {
		t.tx.CompareAndSwap(tx, nil)
		t.Close()
		return err
	}
	t.tx.Store(next)
	t.store.active.CompareAndSwap(tx, next)
	return nil
}

// Close rolls back anything not yet committed and detaches the handle from the store.
// It never commits, and calling it again is a no-op.
func (t *Txn) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	tx := t.tx.Swap(nil)
	t.store.txn.CompareAndSwap(t, nil)
	if tx == nil {
		t.store.active.Store(nil)
		return nil
	}
	t.store.active.CompareAndSwap(tx, nil)

	if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		t.logger.Warn("Failed to roll back transaction on release", zap.Error(err))
		return err
	}
	return nil
}
