// Package sqlite3 implements kv.Store on top of SQLite, running as WebAssembly on wazero.
//
// A Store owns exactly one connection. Every operation is synchronous, and writes are grouped
// atomically only through Batch or a Transaction handle. The table is created and stamped with
// SchemaVersion the first time a database is opened; later opens refuse files written by a
// different schema version.
package sqlite3
