// Package reconcile moves client records between the store and spreadsheet
// files.
//
// Export writes a point-in-time snapshot with a fixed column order
// (username, phone_number, added_time). Import parses the whole file before
// touching the store, refuses malformed files outright, skips individual bad
// rows, and applies the rest through insert-if-absent inside one store
// session. Importing the same file twice adds nothing the second time.
//
// XLSX goes through excelize; CSV through encoding/csv.
package reconcile
