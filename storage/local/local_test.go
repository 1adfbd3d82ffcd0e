package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/storage"
)

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewWithFs("/data", afero.NewMemMapFs())

	if err := s.Upload(ctx, "transcriber/c1/run.json", strings.NewReader(`{"ok":true}`), "application/json"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	ok, err := s.Exists(ctx, "transcriber/c1/run.json")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}

	rc, err := s.Download(ctx, "transcriber/c1/run.json")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != `{"ok":true}` {
		t.Errorf("unexpected content %q", data)
	}

	if err := s.Delete(ctx, "transcriber/c1/run.json"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "transcriber/c1/run.json"); err != nil {
		t.Fatalf("deleting a missing file should succeed: %v", err)
	}
	if _, err := s.Download(ctx, "transcriber/c1/run.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_RejectsTraversal(t *testing.T) {
	s := NewWithFs("/data", afero.NewMemMapFs())
	if err := s.Upload(context.Background(), "../escape", bytes.NewReader(nil), ""); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestStorage_Location(t *testing.T) {
	s := NewWithFs("/data", afero.NewMemMapFs())
	if got := s.Location("transcriber/c1/run.md"); got != "file:///data/transcriber/c1/run.md" {
		t.Errorf("Location() = %q", got)
	}
}

func TestStorage_FactoryOnDisk(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderLocal, BasePath: dir}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := st.Upload(context.Background(), "a/b.txt", strings.NewReader("hi"), "text/plain"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
	if err != nil || string(data) != "hi" {
		t.Errorf("file on disk = %q, %v", data, err)
	}
}
