package sqlite3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.miragespace.co/kvlite/spec/kv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 100

var upsertOnKey = clause.OnConflict{
	Columns:   []clause.Column{{Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "last_update_time"}),
}

func now() time.Time {
	return time.Now().UTC()
}

func (s *Store) KeyCount(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx, "count keys")
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Raw(s.q.count).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) KeyExists(ctx context.Context, key string) (bool, error) {
	if err := kv.MustNotBeEmpty("key", key); err != nil {
		return false, err
	}
	db, err := s.conn(ctx, "check key")
	if err != nil {
		return false, err
	}
	var count int64
	if err := db.Raw(s.q.countByKey, key).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := kv.MustNotBeEmpty("key", key); err != nil {
		return "", err
	}
	db, err := s.conn(ctx, "get")
	if err != nil {
		return "", err
	}
	var entry kv.Element
	resp := db.Select("value").Where(&kv.Element{Key: key}).Take(&entry)
	if resp.Error != nil {
		if errors.Is(resp.Error, gorm.ErrRecordNotFound) {
			if s.options.ThrowOnGetKeyNotFound {
				return "", fmt.Errorf("%w: %q", kv.ErrNotFound, key)
			}
			return "", nil
		}
		return "", resp.Error
	}
	return entry.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetElement(ctx, &kv.Element{
		Key:   key,
		Value: value,
	})
}

// SetElement inserts or replaces a single element. LastUpdateTime is set by the store.
func (s *Store) SetElement(ctx context.Context, element *kv.Element) error {
	if err := kv.ValidateElement(element); err != nil {
		return err
	}
	db, err := s.conn(ctx, "set")
	if err != nil {
		return err
	}
	entry := &kv.Element{
		Key:            element.Key,
		Value:          element.Value,
		LastUpdateTime: now(),
	}
	return db.Clauses(upsertOnKey).Create(entry).Error
}

// SetElements upserts all elements in one transaction. Every element is validated
// before anything is written, and all of them share the same LastUpdateTime.
func (s *Store) SetElements(ctx context.Context, elements []*kv.Element) error {
	if err := kv.MustNotBeNil("elements", elements); err != nil {
		return err
	}
	for i, e := range elements {
		if err := kv.ValidateElement(e); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	db, err := s.conn(ctx, "set")
	if err != nil {
		return err
	}
	if len(elements) == 0 {
		return nil
	}

	ts := now()
	entries := make([]*kv.Element, len(elements))
	for i, e := range elements {
		entries[i] = &kv.Element{
			Key:            e.Key,
			Value:          e.Value,
			LastUpdateTime: ts,
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(upsertOnKey).CreateInBatches(entries, insertBatchSize).Error
	})
}

// Clear removes key. Removing an absent key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := kv.MustNotBeEmpty("key", key); err != nil {
		return err
	}
	db, err := s.conn(ctx, "clear")
	if err != nil {
		return err
	}
	return db.Delete(&kv.Element{Key: key}).Error
}

// ClearPrefix removes every key starting with prefix and returns how many were removed.
func (s *Store) ClearPrefix(ctx context.Context, prefix string) (int64, error) {
	db, err := s.conn(ctx, "clear prefix")
	if err != nil {
		return 0, err
	}
	resp := db.Exec(s.q.deleteByPrefix, kv.PrefixPattern(prefix))
	if resp.Error != nil {
		return 0, resp.Error
	}
	return resp.RowsAffected, nil
}

// ClearAll drops and recreates the table.
func (s *Store) ClearAll(ctx context.Context) error {
	db, err := s.conn(ctx, "clear all")
	if err != nil {
		return err
	}
	if s.options.ThrowOnClearAll {
		return fmt.Errorf("%w: clearing all keys", kv.ErrOperationDisabled)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(&kv.Element{}); err != nil {
			return err
		}
		return tx.Migrator().CreateTable(&kv.Element{})
	})
}
