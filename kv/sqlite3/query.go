package sqlite3

import (
	"context"
	"database/sql"
	"iter"

	"go.miragespace.co/kvlite/spec/kv"

	"gorm.io/gorm"
)

// keysPerQuery bounds the parameters bound to one IN list, well below SQLite's limit.
const keysPerQuery = 500

// queryRows streams the rows of query. Outside a transaction the rows hold the store's
// only connection until the loop ends; other calls made from the loop body fail with
// kv.ErrInvalidState until then.
func queryRows[T any](ctx context.Context, s *Store, op string, scan func(*gorm.DB, *sql.Rows) (T, error), query string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		db, err := s.conn(ctx, op)
		if err != nil {
			yield(zero, err)
			return
		}
		if s.active.Load() == nil {
			s.iterating.Inc()
			defer s.iterating.Dec()
		}
		rows, err := db.Raw(query, args...).Rows()
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scan(db, rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

func scanKey(_ *gorm.DB, rows *sql.Rows) (string, error) {
	var key string
	err := rows.Scan(&key)
	return key, err
}

func scanElement(db *gorm.DB, rows *sql.Rows) (kv.Element, error) {
	var e kv.Element
	err := db.ScanRows(rows, &e)
	return e, err
}

func empty[T any]() iter.Seq2[T, error] {
	return func(func(T, error) bool) {}
}

func failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

func (s *Store) QueryAllKeys(ctx context.Context) iter.Seq2[string, error] {
	return queryRows(ctx, s, "list keys", scanKey, s.q.listKeys)
}

func (s *Store) FetchAllKeys(ctx context.Context) ([]string, error) {
	return kv.Collect(s.QueryAllKeys(ctx))
}

// QueryPrefix yields every element whose key starts with prefix. A trailing '%' on
// prefix is accepted and not doubled; an empty prefix yields everything.
func (s *Store) QueryPrefix(ctx context.Context, prefix string) iter.Seq2[kv.Element, error] {
	return queryRows(ctx, s, "query prefix", scanElement, s.q.selectByPrefix, kv.PrefixPattern(prefix))
}

func (s *Store) FetchPrefix(ctx context.Context, prefix string) ([]kv.Element, error) {
	return kv.Collect(s.QueryPrefix(ctx, prefix))
}

// foldKey folds ASCII letters the way the NOCASE collation does.
func foldKey(key string) string {
	b := []byte(key)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// uniqueKeys drops keys that the NOCASE collation considers equal to an earlier one.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		folded := foldKey(key)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		out = append(out, key)
	}
	return out
}

// QueryByKeys yields the elements stored under keys. Absent keys are skipped, and each
// stored element is yielded at most once even when its key appears in keys more than once,
// in any ASCII letter case. Long key lists are read keysPerQuery keys at a time.
func (s *Store) QueryByKeys(ctx context.Context, keys ...string) iter.Seq2[kv.Element, error] {
	for _, key := range keys {
		if err := kv.MustNotBeEmpty("key", key); err != nil {
			return failed[kv.Element](err)
		}
	}
	if len(keys) == 0 {
		return empty[kv.Element]()
	}
	unique := uniqueKeys(keys)
	return func(yield func(kv.Element, error) bool) {
		for start := 0; start < len(unique); start += keysPerQuery {
			chunk := unique[start:min(start+keysPerQuery, len(unique))]
			for e, err := range queryRows(ctx, s, "query keys", scanElement, s.q.selectByKeys, chunk) {
				if !yield(e, err) || err != nil {
					return
				}
			}
		}
	}
}

func (s *Store) FetchByKeys(ctx context.Context, keys ...string) ([]kv.Element, error) {
	return kv.Collect(s.QueryByKeys(ctx, keys...))
}
