// Package codec provides pluggable serializers for delivered records and a
// Subscriber implementation that streams records onto an io.Writer.
//
// Two codecs are available:
//
//   - Binary: a custom, allocation-conscious format with one type tag per
//     field (nil, bool, int64, float64, string, []byte). Values round-trip
//     with their exact types.
//   - JSON: standard library JSON. Convenient for interop and debugging;
//     note that all numbers decode as float64.
//
// NewWriterSubscriber adapts any io.Writer into a result.Subscriber: every
// completed record is encoded with the chosen codec and written as one
// length-prefixed frame.
package codec
