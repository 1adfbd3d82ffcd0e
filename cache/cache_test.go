package cache_test

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/cache/cachetest"
)

func TestCache_SaveAndOpen(t *testing.T) {
	c, _ := cachetest.New(t)
	n, err := c.Save("t1_a.wav", strings.NewReader("RIFFdata"), 0)
	if err != nil || n != 8 {
		t.Fatalf("Save = %d, %v", n, err)
	}
	f, err := c.Open("t1_a.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "RIFFdata" {
		t.Errorf("read back %q", data)
	}
}

func TestCache_SaveLimit(t *testing.T) {
	c, _ := cachetest.New(t)
	_, err := c.Save("big.wav", bytes.NewReader(make([]byte, 11)), 10)
	if !errors.Is(err, cache.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if ok, _ := c.Exists("big.wav"); ok {
		t.Error("partial file should be removed")
	}
	if _, err := c.Save("ok.wav", bytes.NewReader(make([]byte, 10)), 10); err != nil {
		t.Errorf("file at the limit should be accepted: %v", err)
	}
}

func TestCache_RejectsUnsafePaths(t *testing.T) {
	c, _ := cachetest.New(t)
	for _, p := range []string{"../etc/passwd", "/etc/passwd", "a/../../b", ""} {
		if err := c.WriteFile(p, []byte("x")); !errors.Is(err, cache.ErrUnsafePath) {
			t.Errorf("WriteFile(%q) = %v, want ErrUnsafePath", p, err)
		}
	}
}

func TestCache_AbsRel(t *testing.T) {
	c, _ := cachetest.New(t)
	abs := c.Abs("t1_a.wav")
	if abs != filepath.Join(cachetest.Root, "t1_a.wav") {
		t.Errorf("Abs = %q", abs)
	}
	rel, err := c.Rel(abs)
	if err != nil || rel != "t1_a.wav" {
		t.Errorf("Rel = %q, %v", rel, err)
	}
	if _, err := c.Rel("/elsewhere/x.wav"); !errors.Is(err, cache.ErrUnsafePath) {
		t.Errorf("expected path outside root to be rejected, got %v", err)
	}
	if _, err := c.Rel(cachetest.Root); err == nil {
		t.Error("the root itself is not a file")
	}
}

func TestCache_Purge(t *testing.T) {
	c, _ := cachetest.New(t)
	_ = c.WriteFile("t1_a.wav", []byte("a"))
	_ = c.WriteFile("t1/t1_a.json", []byte("{}"))
	_ = c.WriteFile("t1/t1_a.md", []byte("#"))

	rep := c.Purge([]string{"t1_a.wav", "t1/t1_a.json", "t1/t1_a.md", "t1/gone.md"}, "t1")
	if !rep.OK() {
		t.Fatalf("unexpected failures: %v", rep.Err())
	}
	if len(rep.Deleted) != 3 || len(rep.Missing) != 1 || !rep.DirRemoved {
		t.Errorf("unexpected report %+v", rep)
	}
	if ok, _ := c.Exists("t1"); ok {
		t.Error("empty task dir should be removed")
	}

	again := c.Purge([]string{"t1_a.wav"}, "t1")
	if !again.OK() || len(again.Missing) != 1 || again.DirRemoved {
		t.Errorf("second purge should be a no-op, got %+v", again)
	}
}

func TestCache_PurgeKeepsNonEmptyDir(t *testing.T) {
	c, _ := cachetest.New(t)
	_ = c.WriteFile("t1/t1_a.json", []byte("{}"))
	_ = c.WriteFile("t1/stray.txt", []byte("?"))

	rep := c.Purge([]string{"t1/t1_a.json"}, "t1")
	if !rep.OK() || rep.DirRemoved {
		t.Errorf("unexpected report %+v", rep)
	}
	if ok, _ := c.Exists("t1/stray.txt"); !ok {
		t.Error("unrelated file must survive")
	}
}

func TestCache_PurgeRecordsFailures(t *testing.T) {
	c, fs := cachetest.New(t)
	_ = c.WriteFile("t1/t1_a.json", []byte("{}"))
	_ = c.WriteFile("t1/t1_a.md", []byte("#"))
	fs.FailRemove("t1/t1_a.md")

	rep := c.Purge([]string{"t1/t1_a.json", "t1/t1_a.md"}, "t1")
	if rep.OK() {
		t.Fatal("expected failure")
	}
	if len(rep.Failed) != 1 || rep.Failed[0] != "t1/t1_a.md" || len(rep.Deleted) != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if rep.DirRemoved {
		t.Error("directory still holds the undeletable file")
	}
}

func TestConfig(t *testing.T) {
	var cfg cache.Config
	cfg.ApplyDefaults()
	if cfg.Retention() != 7*24*time.Hour {
		t.Errorf("expected 7 day retention, got %v", cfg.Retention())
	}
	if !cfg.Reaper() || cfg.ReaperSchedule != "@daily" {
		t.Errorf("unexpected reaper defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.ReaperSchedule = "every tuesday"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid schedule to be rejected")
	}
	cfg.ReaperSchedule = "@every 6h"
	if err := cfg.Validate(); err != nil {
		t.Errorf("descriptor schedules are accepted: %v", err)
	}
}
