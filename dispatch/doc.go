// Package dispatch creates task records and hands them to the work queue.
//
// CreateAndDispatch validates the optional results sink, acquires the source
// audio into the cache, writes the initial record and enqueues exactly once.
// A failed enqueue leaves the record FAILED; nothing is retried.
package dispatch
