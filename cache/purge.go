package cache

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// PurgeReport describes one cleanup attempt. A missing file counts as
// cleaned, not as a failure.
type PurgeReport struct {
	Deleted []string
	Missing []string
	Failed  []string
	Errors  []error
	// DirRemoved is set when the task directory was empty and got removed.
	DirRemoved bool
}

// OK reports whether every deletion attempt succeeded.
func (r PurgeReport) OK() bool { return len(r.Failed) == 0 }

// Err joins the individual failures.
func (r PurgeReport) Err() error { return errors.Join(r.Errors...) }

// Purge deletes files, then removes dir if it is left empty. dir may be
// empty. A directory that still holds other entries is kept and is not a
// failure.
func (c *Cache) Purge(files []string, dir string) PurgeReport {
	var rep PurgeReport
	for _, f := range files {
		err := c.Remove(f)
		switch {
		case err == nil:
			rep.Deleted = append(rep.Deleted, f)
		case os.IsNotExist(err):
			rep.Missing = append(rep.Missing, f)
		default:
			rep.Failed = append(rep.Failed, f)
			rep.Errors = append(rep.Errors, fmt.Errorf("remove %s: %w", f, err))
		}
	}

	if dir == "" {
		return rep
	}
	removed, err := c.RemoveDirIfEmpty(dir)
	if err != nil {
		rep.Failed = append(rep.Failed, dir)
		rep.Errors = append(rep.Errors, fmt.Errorf("remove dir %s: %w", dir, err))
	}
	rep.DirRemoved = removed
	return rep
}

// RemoveDirIfEmpty removes dir when it exists and has no entries.
func (c *Cache) RemoveDirIfEmpty(dir string) (bool, error) {
	name, err := c.name(dir)
	if err != nil {
		return false, err
	}
	exists, err := afero.DirExists(c.fs, name)
	if err != nil || !exists {
		return false, err
	}
	empty, err := afero.IsEmpty(c.fs, name)
	if err != nil || !empty {
		return false, err
	}
	if err := c.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return true, nil
}
