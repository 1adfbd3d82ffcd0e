// Package worker runs delivered transcription work units.
//
// Executor.Handle moves a task to PROCESSING, runs the transcript pipeline on
// the cached source audio, writes the JSON and Markdown artifacts into the
// task's cache subdirectory, optionally uploads them to object storage and
// records the final status. The record is updated before any error is
// returned to the queue, so its status always matches what exists on disk
// and in the bucket.
//
// Deliveries are at-least-once. A delivery for a task that is already
// terminal is acknowledged without work; a delivery for a task left in
// PROCESSING by a lost worker runs again and overwrites the artifacts.
package worker
