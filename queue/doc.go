// Package queue carries transcription work units from the API process to
// the worker pool over asynq (Redis-backed).
//
// The broker delivers at least once: a task is acknowledged only when the
// handler returns, and tasks held by a lost worker are recovered and
// delivered again. Handler failures are final (asynq.SkipRetry) because
// the executor has already recorded them on the task; only ErrTransient
// results are left to the broker's bounded retry.
package queue
