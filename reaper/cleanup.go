package reaper

import (
	"context"
	"errors"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/store"
	"github.com/kbukum/transcriber/task"
)

// CleanupResult reports what Cleanup removed.
type CleanupResult struct {
	Files cache.PurgeReport
	// RecordDeleted is set when the metadata record was removed.
	RecordDeleted bool
	// RecordErr is the error from deleting the record, if attempted.
	RecordErr error
}

// Cleanup removes rec's local files and task directory, then deletes rec
// iff every removal succeeded. The delete is version-checked: if rec changed
// since it was read the record is kept and RecordErr wraps
// store.ErrVersionConflict.
func Cleanup(ctx context.Context, tasks *store.Tasks, c *cache.Cache, rec *task.Record) CleanupResult {
	res := CleanupResult{Files: c.Purge(rec.LocalFiles(), rec.ArtifactDir())}
	if !res.Files.OK() {
		return res
	}
	if err := tasks.Delete(ctx, rec); err != nil {
		res.RecordErr = err
		return res
	}
	res.RecordDeleted = true
	return res
}

// Conflict reports whether the record was kept because it changed concurrently.
func (r CleanupResult) Conflict() bool {
	return errors.Is(r.RecordErr, store.ErrVersionConflict)
}
