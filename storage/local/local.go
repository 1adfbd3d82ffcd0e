package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(_ context.Context, cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
}

// Storage implements storage.Storage on a directory tree.
type Storage struct {
	basePath string
	fs       afero.Fs
}

// NewStorage creates a local storage rooted at basePath.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return NewWithFs(abs, afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// NewWithFs creates a storage on an existing filesystem. basePath is only
// used to build locations.
func NewWithFs(basePath string, fs afero.Fs) *Storage {
	return &Storage{basePath: basePath, fs: fs}
}

func clean(path string) (string, error) {
	p := filepath.Clean("/" + path)
	if p == "/" || strings.Contains(path, "..") {
		return "", fmt.Errorf("storage: invalid path %q", path)
	}
	return p, nil
}

// Upload writes data from reader to a local file.
func (s *Storage) Upload(_ context.Context, path string, reader io.Reader, _ string) error {
	p, err := clean(path)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}

	f, err := s.fs.Create(p)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		return fmt.Errorf("storage: write file: %w", err)
	}
	return f.Close()
}

// Download returns a reader for the local file at the given path.
func (s *Storage) Download(_ context.Context, path string) (io.ReadCloser, error) {
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Delete removes a local file. Returns nil if the file does not exist.
func (s *Storage) Delete(_ context.Context, path string) error {
	p, err := clean(path)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Exists checks whether a local file exists.
func (s *Storage) Exists(_ context.Context, path string) (bool, error) {
	p, err := clean(path)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, p)
	if err != nil {
		return false, fmt.Errorf("storage: stat file: %w", err)
	}
	return ok, nil
}

// Location returns a file:// URL for the local file.
func (s *Storage) Location(path string) string {
	u := &url.URL{Scheme: "file", Path: filepath.Join(s.basePath, filepath.Clean("/"+path))}
	return u.String()
}

var _ storage.Storage = (*Storage)(nil)
