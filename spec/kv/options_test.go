package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	as := require.New(t)

	opts := DefaultOptions()
	as.True(opts.CreateIfMissing)
	as.True(opts.VerifyOnOpen)
	as.False(opts.InMemory)
	as.False(opts.DeleteExisting)
	as.False(opts.ThrowOnClearAll)
	as.False(opts.ThrowOnGetKeyNotFound)
	as.Equal(5*time.Second, opts.BusyTimeout)
	as.NotNil(opts.Logger)
}

func TestBuildOptionsRequiresName(t *testing.T) {
	as := require.New(t)

	_, err := BuildOptions(nil)
	as.ErrorIs(err, ErrInvalidState)

	_, err = BuildOptions(func(o *Options) {
		o.DatabaseName = "   "
	})
	as.ErrorIs(err, ErrInvalidState)

	opts, err := BuildOptions(func(o *Options) {
		o.DatabaseName = "data.db"
	})
	as.NoError(err)
	as.Equal("data.db", opts.Name())
}

func TestBuildOptionsInMemory(t *testing.T) {
	as := require.New(t)

	opts, err := BuildOptions(func(o *Options) {
		o.InMemory = true
		o.DeleteExisting = true
		o.CreateIfMissing = false
	})
	as.NoError(err)
	as.False(opts.DeleteExisting)
	as.True(opts.CreateIfMissing)
	as.Equal(InMemoryDatabaseName, opts.Name())
}

func TestBuildOptionsValidation(t *testing.T) {
	as := require.New(t)

	_, err := BuildOptions(func(o *Options) {
		o.InMemory = true
		o.BusyTimeout = -time.Second
	})
	as.ErrorIs(err, ErrInvalidState)

	_, err = BuildOptions(func(o *Options) {
		o.InMemory = true
		o.SlowQueryThreshold = -time.Second
	})
	as.ErrorIs(err, ErrInvalidState)

	_, err = BuildOptions(func(o *Options) {
		o.InMemory = true
		o.JournalMode = "sideways"
	})
	as.ErrorIs(err, ErrInvalidState)

	opts, err := BuildOptions(func(o *Options) {
		o.InMemory = true
		o.JournalMode = "wal"
		o.Logger = nil
	})
	as.NoError(err)
	as.Equal("WAL", opts.JournalMode)
	as.NotNil(opts.Logger)
}
