package kv

import (
	"errors"
)

var (
	ErrInvalidState      = errorDef("kv: operation is invalid in the current state", false)
	ErrInvalidArgument   = errorDef("kv: invalid argument", false)
	ErrNotFound          = errorDef("kv: key not found", false)
	ErrOperationDisabled = errorDef("kv: operation is disabled by an option set on open", false)
	ErrClosed            = errorDef("kv: store is closed", false)

	ErrNotADatabase = errorDef("kv/open: file is not a database", true)
	ErrCorrupt      = errorDef("kv/open: database file is corrupt", true)
	ErrOpenFailed   = errorDef("kv/open: could not open database", true)
	ErrSchemaTooOld = errorDef("kv/open: database schema is older than the library, upgrade the database file", true)
	ErrSchemaTooNew = errorDef("kv/open: database schema is newer than the library, upgrade the application", true)
)

// IsOpenError reports whether err was produced while opening or verifying a database.
func IsOpenError(err error) bool {
	if err == nil {
		return false
	}
	for sentinel, open := range openMap {
		if open && errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

var openMap map[error]bool = map[error]bool{}

func errorDef(str string, open bool) error {
	err := errors.New(str)
	openMap[err] = open
	return err
}
