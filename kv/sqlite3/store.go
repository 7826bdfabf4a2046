package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.miragespace.co/kvlite/spec/kv"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaVersion is stored in user_version when the table is created.
const SchemaVersion = 1

type Store struct {
	logger  *zap.Logger
	options kv.Options
	name    string
	q       queries

	db    *gorm.DB
	sqlDB *sql.DB

	// active is the transaction operations currently run in, if any
	active atomic.Pointer[gorm.DB]
	txn    atomic.Pointer[Txn]

	// iterating counts lazy queries reading on the connection outside a transaction
	iterating *atomic.Int32

	initialized *atomic.Bool
	opened      *atomic.Bool
	closed      *atomic.Bool
}

var _ kv.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		logger:      zap.NewNop(),
		iterating:   atomic.NewInt32(0),
		initialized: atomic.NewBool(false),
		opened:      atomic.NewBool(false),
		closed:      atomic.NewBool(false),
	}
}

// Open initializes and opens a store in one step. The store is closed again if opening fails.
func Open(ctx context.Context, configure func(*kv.Options)) (*Store, error) {
	s, err := New().Initialize(configure)
	if err != nil {
		return nil, err
	}
	if _, err := s.Open(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Initialize builds the options and opens the connection. It may only be called once.
func (s *Store) Initialize(configure func(*kv.Options)) (*Store, error) {
	if s.closed.Load() {
		return nil, errClosed("initialize")
	}
	if !s.initialized.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: cannot initialize twice", kv.ErrInvalidState)
	}

	opts, err := kv.BuildOptions(configure)
	if err != nil {
		s.initialized.Store(false)
		return nil, err
	}

	name := opts.Name()
	logger := opts.Logger.With(zap.String("database", name))

	if !opts.InMemory && opts.DeleteExisting {
		if _, err := os.Stat(name); err == nil {
			logger.Info("Deleting existing database")
			if err := removeDatabaseFiles(name); err != nil {
				s.initialized.Store(false)
				return nil, fmt.Errorf("%w: deleting existing database: %w", kv.ErrOpenFailed, err)
			}
		}
	}

	db, sqlDB, err := openDatabase(logger, opts)
	if err != nil {
		s.initialized.Store(false)
		return nil, translateOpenError(err)
	}

	s.logger = logger
	s.options = opts
	s.name = name
	s.db = db
	s.sqlDB = sqlDB

	return s, nil
}

// Open creates the table on a new database, then verifies the schema version and integrity.
func (s *Store) Open(ctx context.Context) (*Store, error) {
	if s.closed.Load() {
		return nil, errClosed("open")
	}
	if s.db == nil {
		return nil, fmt.Errorf("%w: cannot open before initialize", kv.ErrInvalidState)
	}
	if s.opened.Load() {
		return s, nil
	}

	s.q = newQueries(kv.Element{}.TableName())

	if err := s.ensureTable(ctx); err != nil {
		return nil, translateOpenError(err)
	}

	if err := s.verify(ctx); err != nil {
		return nil, translateOpenError(err)
	}

	s.opened.Store(true)
	s.logger.Info("Database opened", zap.Bool("memory", s.options.InMemory))

	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Migrator().HasTable(&kv.Element{}) {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().CreateTable(&kv.Element{}); err != nil {
			return err
		}
		if err := tx.Exec(s.q.setUserVersion).Error; err != nil {
			return err
		}
		s.logger.Info("Created table", zap.String("table", s.q.table), zap.Int("schemaVersion", SchemaVersion))
		return nil
	})
}

// Close closes the store, rolling back a transaction handle that is still open.
// Closing more than once is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t := s.txn.Load(); t != nil {
		if err := t.Close(); err != nil {
			s.logger.Warn("Failed to release abandoned transaction", zap.Error(err))
		}
	}
	if s.sqlDB == nil {
		return nil
	}
	s.logger.Debug("Closing database")
	return s.sqlDB.Close()
}

func (s *Store) DatabaseName() string {
	return s.name
}

// Options returns a copy of the options the store was initialized with.
func (s *Store) Options() kv.Options {
	return s.options
}

// conn returns the handle an operation runs on: the active transaction if there is one.
// Outside a transaction the single connection may be held by a lazy query, in which case
// the operation fails instead of waiting for a connection that cannot be released.
func (s *Store) conn(ctx context.Context, op string) (*gorm.DB, error) {
	if s.closed.Load() {
		return nil, errClosed(op)
	}
	if !s.opened.Load() {
		return nil, errNotOpen(op)
	}
	if tx := s.active.Load(); tx != nil {
		return tx.WithContext(ctx), nil
	}
	if s.iterating.Load() > 0 {
		return nil, fmt.Errorf("%w: cannot %s, connection busy with an open query", kv.ErrInvalidState, op)
	}
	return s.db.WithContext(ctx), nil
}
