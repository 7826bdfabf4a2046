package kv

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const InMemoryDatabaseName = ":memory:"

// Options controls how a Store is opened. It is consumed once by Initialize.
type Options struct {
	DatabaseName          string        `yaml:"database"`
	UseUTF16              bool          `yaml:"utf16"`
	InMemory              bool          `yaml:"memory"`
	DeleteExisting        bool          `yaml:"delete_existing"`
	CreateIfMissing       bool          `yaml:"create_if_missing"`
	VerifyOnOpen          bool          `yaml:"verify_on_open"`
	QuickVerify           bool          `yaml:"quick_verify"`
	StrictVerify          bool          `yaml:"strict_verify"`
	ThrowOnClearAll       bool          `yaml:"throw_on_clear_all"`
	ThrowOnGetKeyNotFound bool          `yaml:"throw_on_get_key_not_found"`
	BusyTimeout           time.Duration `yaml:"busy_timeout"`
	JournalMode           string        `yaml:"journal_mode"`
	SlowQueryThreshold    time.Duration `yaml:"slow_query_threshold"`
	TraceSQL              bool          `yaml:"trace_sql"`

	Logger *zap.Logger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		CreateIfMissing:    true,
		VerifyOnOpen:       true,
		BusyTimeout:        5 * time.Second,
		SlowQueryThreshold: 500 * time.Millisecond,
		Logger:             zap.NewNop(),
	}
}

var journalModes = map[string]bool{
	"DELETE":   true,
	"TRUNCATE": true,
	"PERSIST":  true,
	"MEMORY":   true,
	"WAL":      true,
	"OFF":      true,
}

// BuildOptions applies configure on top of DefaultOptions, normalizes the result and validates it.
// configure may be nil.
func BuildOptions(configure func(*Options)) (Options, error) {
	opts := DefaultOptions()
	if configure != nil {
		configure(&opts)
	}
	if err := opts.normalize(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o *Options) normalize() error {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.InMemory {
		o.DeleteExisting = false
		o.CreateIfMissing = true
	} else if strings.TrimSpace(o.DatabaseName) == "" {
		return fmt.Errorf("%w: database name is required unless the store is in memory", ErrInvalidState)
	}
	if o.BusyTimeout < 0 {
		return fmt.Errorf("%w: busy timeout cannot be negative", ErrInvalidState)
	}
	if o.SlowQueryThreshold < 0 {
		return fmt.Errorf("%w: slow query threshold cannot be negative", ErrInvalidState)
	}
	if o.JournalMode != "" {
		mode := strings.ToUpper(o.JournalMode)
		if !journalModes[mode] {
			return fmt.Errorf("%w: unknown journal mode %q", ErrInvalidState, o.JournalMode)
		}
		o.JournalMode = mode
	}
	return nil
}

// Name returns the identifier the engine is opened with.
func (o Options) Name() string {
	if o.InMemory {
		return InMemoryDatabaseName
	}
	return o.DatabaseName
}
