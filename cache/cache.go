package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/util"
)

var (
	// ErrUnsafePath is returned for paths that are absolute or contain "..".
	ErrUnsafePath = errors.New("cache: path escapes the cache root")
	// ErrTooLarge is returned by Save when the stream exceeds its limit.
	ErrTooLarge = errors.New("cache: file exceeds size limit")
)

// Cache is a filesystem rooted at a single directory.
type Cache struct {
	root string
	fs   afero.Fs
}

// New creates the root directory if needed and returns a cache confined to it.
func New(root string) (*Cache, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cache: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("cache: create root: %w", err)
	}
	return NewWithFs(abs, afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// NewWithFs wraps fs, which must already be rooted at root.
func NewWithFs(root string, fs afero.Fs) *Cache {
	return &Cache{root: filepath.Clean(root), fs: fs}
}

// Root returns the absolute cache root.
func (c *Cache) Root() string { return c.root }

// Fs exposes the underlying filesystem.
func (c *Cache) Fs() afero.Fs { return c.fs }

func (c *Cache) name(rel string) (string, error) {
	if !util.IsSafeRelativePath(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return "/" + filepath.ToSlash(filepath.Clean(rel)), nil
}

// Abs returns the absolute path of a cache-relative path.
func (c *Cache) Abs(rel string) string {
	return filepath.Join(c.root, filepath.Clean("/"+rel))
}

// Rel converts an absolute path under the root back to a cache-relative path.
func (c *Cache) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(c.root, filepath.Clean(abs))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, abs)
	}
	return filepath.ToSlash(rel), nil
}

// Save streams r into rel. With limit > 0 a stream longer than limit is
// rejected with ErrTooLarge and the partial file is removed.
func (c *Cache) Save(rel string, r io.Reader, limit int64) (int64, error) {
	name, err := c.name(rel)
	if err != nil {
		return 0, err
	}
	if err := c.fs.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return 0, fmt.Errorf("cache: create directory: %w", err)
	}
	f, err := c.fs.Create(name)
	if err != nil {
		return 0, fmt.Errorf("cache: create %s: %w", rel, err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = c.fs.Remove(name)
		return n, fmt.Errorf("cache: write %s: %w", rel, err)
	case limit > 0 && n > limit:
		_ = c.fs.Remove(name)
		return n, ErrTooLarge
	case closeErr != nil:
		_ = c.fs.Remove(name)
		return n, fmt.Errorf("cache: close %s: %w", rel, closeErr)
	}
	return n, nil
}

// WriteFile replaces rel with data, creating parent directories.
func (c *Cache) WriteFile(rel string, data []byte) error {
	name, err := c.name(rel)
	if err != nil {
		return err
	}
	if err := c.fs.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return fmt.Errorf("cache: create directory: %w", err)
	}
	return afero.WriteFile(c.fs, name, data, 0o640)
}

// Open opens rel for reading.
func (c *Cache) Open(rel string) (afero.File, error) {
	name, err := c.name(rel)
	if err != nil {
		return nil, err
	}
	return c.fs.Open(name)
}

// Stat returns file info for rel.
func (c *Cache) Stat(rel string) (os.FileInfo, error) {
	name, err := c.name(rel)
	if err != nil {
		return nil, err
	}
	return c.fs.Stat(name)
}

// Exists reports whether rel exists.
func (c *Cache) Exists(rel string) (bool, error) {
	name, err := c.name(rel)
	if err != nil {
		return false, err
	}
	return afero.Exists(c.fs, name)
}

// Remove deletes rel. A missing file returns an error satisfying os.IsNotExist.
func (c *Cache) Remove(rel string) error {
	name, err := c.name(rel)
	if err != nil {
		return err
	}
	return c.fs.Remove(name)
}
