// Package memidx implements the index.IIndex interface with a concurrent
// in-memory inverted index.
//
// The engine maintains two maps backed by xsync.MapOf: postings (term ->
// set of document IDs) and docs (document ID -> indexed terms, used to
// undo an insert on delete or replace). Both maps are lock-free for reads
// and internally sharded for writes, so all operations can be called
// concurrently without external locking.
//
// The engine is volatile: it does not support the Persist feature and loses
// its contents when the process exits.
package memidx
