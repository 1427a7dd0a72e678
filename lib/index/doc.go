// Package index provides a standardized interface for inverted index
// implementations and connects them to the asynchronous update sink.
//
// The package focuses on:
//   - A unified interface for index mutation and term lookup
//   - Feature discovery through capability flags
//   - Batched, ordered mutation via Batch (which satisfies sink.UpdateBatch)
//   - A provider that owns one update sink per eventually-consistent index
//
// Key Components:
//
//   - IIndex Interface: The core interface all index engines must satisfy.
//     It provides document mutation (Insert, Delete), term lookup (Query),
//     capability discovery (SupportsFeature) and metadata retrieval (GetInfo).
//
//   - Batch: An ordered list of mutations against one engine. A batch is the
//     unit of work accepted by the update sink; applying it replays the
//     mutations in the order they were recorded.
//
//   - Provider: The registry tying engines, sinks and the scheduler
//     together. Writes against an eventually-consistent index are routed
//     through its sink and applied in the background; writes against other
//     indexes are applied inline. RefreshAndAwait exposes the sink barrier
//     per index.
//
// Related Packages:
//
// The engines/memidx package provides a concurrent in-memory implementation
// backed by xsync maps. The engines/pebbleidx package provides a persistent
// implementation backed by the pebble LSM store.
package index
