package kv

import (
	"context"
	"iter"
)

// Store is a key value store. Keys are case-insensitive, values are never empty.
type Store interface {
	KeyCount(ctx context.Context) (int64, error)
	KeyExists(ctx context.Context, key string) (bool, error)

	// Get returns the value stored for key, or "" when the key is absent.
	// Stores opened with ThrowOnGetKeyNotFound return ErrNotFound instead.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error
	SetElement(ctx context.Context, element *Element) error
	SetElements(ctx context.Context, elements []*Element) error

	Clear(ctx context.Context, key string) error
	ClearPrefix(ctx context.Context, prefix string) (int64, error)
	ClearAll(ctx context.Context) error

	QueryAllKeys(ctx context.Context) iter.Seq2[string, error]
	FetchAllKeys(ctx context.Context) ([]string, error)
	QueryPrefix(ctx context.Context, prefix string) iter.Seq2[Element, error]
	FetchPrefix(ctx context.Context, prefix string) ([]Element, error)
	QueryByKeys(ctx context.Context, keys ...string) iter.Seq2[Element, error]
	FetchByKeys(ctx context.Context, keys ...string) ([]Element, error)

	// Batch runs action inside a transaction. The store passed to action is the
	// same store; an error returned by action rolls every write back.
	Batch(ctx context.Context, action func(Store) error) error
	CreateTransaction(ctx context.Context) (Transaction, error)

	Close() error
}

// Transaction is a long-lived transaction scope on a Store. Commit and Rollback
// end the current transaction and immediately begin the next one; Close rolls
// back whatever is pending and releases the store.
type Transaction interface {
	Commit() error
	Rollback() error
	Close() error
}

// Collect drains a lazy query into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := make([]T, 0)
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
