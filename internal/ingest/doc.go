// Package ingest classifies submitted phone numbers as added, duplicate, or
// invalid and writes the new ones through the clients store.
//
// Single submissions go straight to the store's insert-if-absent primitive.
// Batches share one submitter and one timestamp, run inside a single store
// session, and report three order-preserving partitions. A bad entry never
// aborts a batch; only a storage failure does, and it rolls the batch back.
package ingest
