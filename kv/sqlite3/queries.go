package sqlite3

import (
	"fmt"
	"strings"
)

// queries is the statement catalog for one table, built once per store.
type queries struct {
	table string

	count          string
	countByKey     string
	selectByPrefix string
	deleteByPrefix string
	listKeys       string
	selectByKeys   string

	userVersion    string
	setUserVersion string
	integrityCheck string
	quickCheck     string
	engineVersion  string
	schemaRevision string
	encoding       string
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func newQueries(table string) queries {
	t := quoteIdent(table)
	return queries{
		table: table,

		count:          fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t),
		countByKey:     fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE "key" = ?`, t),
		selectByPrefix: fmt.Sprintf(`SELECT "key", "value", "last_update_time" FROM %s WHERE "key" LIKE ? ESCAPE '\'`, t),
		deleteByPrefix: fmt.Sprintf(`DELETE FROM %s WHERE "key" LIKE ? ESCAPE '\'`, t),
		listKeys:       fmt.Sprintf(`SELECT "key" FROM %s`, t),
		selectByKeys:   fmt.Sprintf(`SELECT "key", "value", "last_update_time" FROM %s WHERE "key" IN ?`, t),

		userVersion:    `PRAGMA ` + PragmaUserVersion,
		setUserVersion: fmt.Sprintf(`PRAGMA %s = %d`, PragmaUserVersion, SchemaVersion),
		integrityCheck: `PRAGMA integrity_check`,
		quickCheck:     `PRAGMA quick_check`,
		engineVersion:  `SELECT sqlite_version()`,
		schemaRevision: `PRAGMA ` + PragmaSchemaVersion,
		encoding:       `PRAGMA ` + PragmaEncoding,
	}
}
