// Package sched provides the background scheduler consumed by the update
// sink: a fixed pool of workers that runs submitted tasks off the caller's
// goroutine.
package sched
