// Package cachetest provides in-memory caches with injectable failures.
package cachetest

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/cache"
)

// Root is the cache root used by New.
const Root = "/cache"

// FailingFs wraps an afero.Fs and returns a permission error when removing
// any path registered with FailRemove.
type FailingFs struct {
	afero.Fs
	mu   sync.Mutex
	fail map[string]bool
}

// FailRemove makes Remove and RemoveAll of the cache-relative path rel fail.
func (f *FailingFs) FailRemove(rel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[filepath.Clean("/"+rel)] = true
}

func (f *FailingFs) failing(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[filepath.Clean(name)]
}

func (f *FailingFs) Remove(name string) error {
	if f.failing(name) {
		return &os.PathError{Op: "remove", Path: name, Err: syscall.EACCES}
	}
	return f.Fs.Remove(name)
}

func (f *FailingFs) RemoveAll(name string) error {
	if f.failing(name) {
		return &os.PathError{Op: "removeall", Path: name, Err: syscall.EACCES}
	}
	return f.Fs.RemoveAll(name)
}

// New returns a cache on an in-memory filesystem and the failure switch.
func New(t testing.TB) (*cache.Cache, *FailingFs) {
	t.Helper()
	fs := &FailingFs{Fs: afero.NewMemMapFs(), fail: map[string]bool{}}
	return cache.NewWithFs(Root, fs), fs
}
