// Package pebbleidx implements the index.IIndex interface on top of the
// pebble LSM store, giving the index durable storage.
//
// Layout: every (term, document) pair is stored twice, as a forward key
// `t <term> <doc>` answering Query by prefix iteration, and as a reverse
// key `d <doc> <term>` so Delete can find the terms of a document without
// a full scan. Segments are separated by a NUL byte, so terms and document
// IDs must not contain NUL.
//
// All mutations of one call are applied through a single pebble batch and
// synced, so a crash never leaves a half-indexed document behind.
package pebbleidx
