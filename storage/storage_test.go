package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/transcriber/component"
	"github.com/kbukum/transcriber/logger"
)

func TestConfig_IsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"s3 complete", Config{Provider: ProviderS3, Bucket: "b", AccessKey: "a", SecretKey: "s"}, true},
		{"s3 without region is fine", Config{Provider: ProviderS3, Bucket: "b", AccessKey: "a", SecretKey: "s", Region: ""}, true},
		{"s3 missing bucket", Config{Provider: ProviderS3, AccessKey: "a", SecretKey: "s"}, false},
		{"s3 missing secret", Config{Provider: ProviderS3, Bucket: "b", AccessKey: "a"}, false},
		{"s3 only endpoint", Config{Provider: ProviderS3, Endpoint: "http://minio:9000"}, false},
		{"local with path", Config{Provider: ProviderLocal, BasePath: "/tmp/x"}, true},
		{"local without path", Config{Provider: ProviderLocal}, false},
		{"unknown provider", Config{Provider: "gcs", Bucket: "b"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.IsConfigured(); got != tc.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Provider != ProviderS3 || cfg.KeyPrefix != DefaultKeyPrefix {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unconfigured s3 should still validate: %v", err)
	}
	cfg.Provider = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unsupported provider error")
	}
}

func TestValidateResultsPath(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"project/run-1", true},
		{"a", true},
		{"", false},
		{"/abs/path", false},
		{"trailing/", false},
		{"a/../b", false},
		{"..", false},
	}
	for _, tc := range tests {
		err := ValidateResultsPath(tc.path)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateResultsPath(%q) = %v, want ok=%v", tc.path, err, tc.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidResultsPath) {
			t.Errorf("expected ErrInvalidResultsPath, got %v", err)
		}
	}
}

func TestResultKey(t *testing.T) {
	got := ResultKey("transcriber", "acme corp!", "runs/2024 q1", ".json")
	want := "transcriber/acme_corp_/runs/2024_q1.json"
	if got != want {
		t.Errorf("ResultKey() = %q, want %q", got, want)
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"audio/in/call.wav": "call.wav",
		"call.wav":          "call.wav",
		"dir/":              "dir",
		"":                  "",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComponent_Unconfigured(t *testing.T) {
	c := NewComponent(Config{Provider: ProviderS3, Bucket: "only-bucket"}, logger.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start should not fail when unconfigured: %v", err)
	}
	if c.Storage() != nil {
		t.Error("expected nil storage when unconfigured")
	}
	h := c.Health(context.Background())
	if h.Status != component.StatusHealthy || h.Message != "not configured" || h.Critical {
		t.Errorf("unexpected health %+v", h)
	}
}

func TestComponent_DescribeMasksAccessKey(t *testing.T) {
	c := NewComponent(Config{
		Bucket:    "media",
		AccessKey: "AKIAEXAMPLEKEY",
		SecretKey: "very-secret",
	}, logger.Nop())

	d := c.Describe().Details
	if !strings.Contains(d, "access_key=AKIA***") {
		t.Errorf("details %q should carry the masked access key", d)
	}
	for _, secret := range []string{"AKIAEXAMPLEKEY", "very-secret"} {
		if strings.Contains(d, secret) {
			t.Errorf("details %q leak %q", d, secret)
		}
	}
}

func TestNew_UnregisteredProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderLocal, BasePath: t.TempDir()}, logger.Nop())
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}
