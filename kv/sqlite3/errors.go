package sqlite3

import (
	"errors"
	"fmt"
	"strings"

	"go.miragespace.co/kvlite/spec/kv"

	"github.com/ncruces/go-sqlite3"
)

// translateOpenError maps an engine failure seen while opening a database to one of the
// kv open errors. The cause stays in the chain.
func translateOpenError(err error) error {
	if err == nil {
		return nil
	}
	if kv.IsOpenError(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, sqlite3.NOTADB) || strings.Contains(msg, "not a database"):
		return fmt.Errorf("%w: %w", kv.ErrNotADatabase, err)
	case errors.Is(err, sqlite3.CORRUPT) || strings.Contains(msg, "malformed") || strings.Contains(msg, "corrupt"):
		return fmt.Errorf("%w: %w", kv.ErrCorrupt, err)
	default:
		return fmt.Errorf("%w: %w", kv.ErrOpenFailed, err)
	}
}

func errClosed(op string) error {
	return fmt.Errorf("%w: cannot %s", kv.ErrClosed, op)
}

func errNotOpen(op string) error {
	return fmt.Errorf("%w: cannot %s before the store is opened", kv.ErrInvalidState, op)
}
