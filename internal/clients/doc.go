// Package clients persists submitted phone numbers in SQLite.
//
// The Store owns the database connection, schema creation, and the single
// insert-if-absent primitive every write path goes through. The UNIQUE
// constraint on phone_number is the final authority on duplicates, so callers
// never need a separate existence check before inserting. Records are
// immutable once written; nothing in this package updates or deletes rows.
//
// Schema changes bump schemaVersion in schema.go; existing databases with a
// different version are refused rather than migrated.
package clients
