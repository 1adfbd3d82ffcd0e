package ingress

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/transcriber/cache"
	"github.com/kbukum/transcriber/cache/cachetest"
	apperrors "github.com/kbukum/transcriber/errors"
	"github.com/kbukum/transcriber/httpclient"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/storage"
	"github.com/kbukum/transcriber/storage/local"
)

func newFetcher(t *testing.T, objects storage.Storage, timeout time.Duration) (*Fetcher, *cache.Cache) {
	t.Helper()
	c, _ := cachetest.New(t)
	client, err := httpclient.New(httpclient.Config{Timeout: timeout})
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	return New(c, client, objects, logger.Nop()), c
}

func readCache(t *testing.T, c *cache.Cache, rel string) string {
	t.Helper()
	f, err := c.Open(rel)
	if err != nil {
		t.Fatalf("open %s: %v", rel, err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	return string(data)
}

func wantAppError(t *testing.T, err error, code apperrors.ErrorCode, status int) {
	t.Helper()
	ae, ok := apperrors.AsAppError(err)
	if !ok {
		t.Fatalf("err = %v, want AppError %s", err, code)
	}
	if ae.Code != code || ae.HTTPStatus != status {
		t.Fatalf("got %s/%d, want %s/%d (%v)", ae.Code, ae.HTTPStatus, code, status, err)
	}
}

func TestCheckUploadType(t *testing.T) {
	tests := []struct {
		ct string
		ok bool
	}{
		{"audio/wav", true},
		{"audio/x-wav", true},
		{"Audio/WAV; codecs=1", true},
		{"audio/mpeg", false},
		{"", false},
	}
	for _, tt := range tests {
		err := CheckUploadType(tt.ct)
		if tt.ok && err != nil {
			t.Errorf("CheckUploadType(%q) = %v", tt.ct, err)
		}
		if !tt.ok {
			wantAppError(t, err, apperrors.ErrCodeUnsupportedMediaType, http.StatusUnsupportedMediaType)
		}
	}
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantName string
	}{
		{"plain", "call.wav", "call.wav"},
		{"unsafe characters", "my call (1).wav", "my_call__1_.wav"},
		{"empty", "", DefaultUploadName},
		{"long", strings.Repeat("a", 150) + ".wav", strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := newFetcher(t, nil, 0)
			src, err := f.Upload(strings.NewReader("RIFF"), tt.filename)(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if src.Name != tt.wantName || src.Path != "t1_"+tt.wantName {
				t.Errorf("source = %+v, want name %q", src, tt.wantName)
			}
			if got := readCache(t, c, src.Path); got != "RIFF" {
				t.Errorf("saved %q", got)
			}
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	f, c := newFetcher(t, nil, 0)
	body := io.LimitReader(zeroReader{}, MaxUploadBytes+1)
	_, err := f.Upload(body, "big.wav")(context.Background(), "t1")
	wantAppError(t, err, apperrors.ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge)
	if ok, _ := c.Exists("t1_big.wav"); ok {
		t.Error("partial upload left in cache")
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestFetchURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/call.wav", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("RIFF-by-extension"))
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/x-wav")
		_, _ = w.Write([]byte("RIFF-by-type"))
	})
	mux.HandleFunc("/song.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	})
	mux.HandleFunc("/missing.wav", http.NotFound)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Run("accepted by extension", func(t *testing.T) {
		f, c := newFetcher(t, nil, 0)
		src, err := f.FetchURL(srv.URL+"/audio/call.wav")(context.Background(), "t1")
		if err != nil {
			t.Fatalf("FetchURL: %v", err)
		}
		if src.Name != "call.wav" || readCache(t, c, src.Path) != "RIFF-by-extension" {
			t.Errorf("source = %+v", src)
		}
	})

	t.Run("accepted by content type", func(t *testing.T) {
		f, _ := newFetcher(t, nil, 0)
		src, err := f.FetchURL(srv.URL+"/stream")(context.Background(), "t1")
		if err != nil {
			t.Fatalf("FetchURL: %v", err)
		}
		if src.Name != "stream" {
			t.Errorf("name = %q", src.Name)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		f, c := newFetcher(t, nil, 0)
		_, err := f.FetchURL(srv.URL+"/song.mp3")(context.Background(), "t1")
		wantAppError(t, err, apperrors.ErrCodeUnsupportedMediaType, http.StatusUnsupportedMediaType)
		if ok, _ := c.Exists("t1_song.mp3"); ok {
			t.Error("rejected audio saved")
		}
	})

	t.Run("upstream status", func(t *testing.T) {
		f, _ := newFetcher(t, nil, 0)
		_, err := f.FetchURL(srv.URL+"/missing.wav")(context.Background(), "t1")
		wantAppError(t, err, apperrors.ErrCodeSourceUnavailable, http.StatusBadGateway)
		ae, _ := apperrors.AsAppError(err)
		if ae.Details["upstream_status"] != http.StatusNotFound {
			t.Errorf("details = %v", ae.Details)
		}
	})
}

func TestLastSegment(t *testing.T) {
	tests := map[string]string{
		"https://host/a/b/call.wav":       "call.wav",
		"https://host/a/call.wav?sig=abc": "call.wav?sig=abc",
		"https://host/dir/":               "",
		"call.wav":                        "call.wav",
	}
	for in, want := range tests {
		if got := lastSegment(in); got != want {
			t.Errorf("lastSegment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchURL_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f, _ := newFetcher(t, nil, 50*time.Millisecond)
	_, err := f.FetchURL(srv.URL+"/slow.wav")(context.Background(), "t1")
	wantAppError(t, err, apperrors.ErrCodeSourceUnavailable, http.StatusGatewayTimeout)
}

func TestFetchURL_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f, _ := newFetcher(t, nil, 0)
	_, err := f.FetchURL(url+"/a.wav")(context.Background(), "t1")
	wantAppError(t, err, apperrors.ErrCodeSourceUnavailable, http.StatusBadGateway)
}

type brokenStorage struct{ storage.Storage }

func (brokenStorage) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("access denied")
}

func TestFetchObject(t *testing.T) {
	objects := local.NewWithFs("/bucket", afero.NewMemMapFs())
	if err := objects.Upload(context.Background(), "input/meeting.wav", strings.NewReader("RIFF-s3"), "audio/wav"); err != nil {
		t.Fatal(err)
	}

	t.Run("copied", func(t *testing.T) {
		f, c := newFetcher(t, objects, 0)
		src, err := f.FetchObject("input/meeting.wav")(context.Background(), "t1")
		if err != nil {
			t.Fatalf("FetchObject: %v", err)
		}
		if src.Name != "meeting.wav" || readCache(t, c, src.Path) != "RIFF-s3" {
			t.Errorf("source = %+v", src)
		}
	})

	tests := []struct {
		name    string
		objects storage.Storage
		key     string
		code    apperrors.ErrorCode
		status  int
	}{
		{"not configured", nil, "input/meeting.wav", apperrors.ErrCodeNotImplemented, http.StatusNotImplemented},
		{"not wav", objects, "input/meeting.mp3", apperrors.ErrCodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"missing key", objects, "input/missing.wav", apperrors.ErrCodeNotFound, http.StatusNotFound},
		{"download error", brokenStorage{}, "input/meeting.wav", apperrors.ErrCodeSourceUnavailable, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newFetcher(t, tt.objects, 0)
			_, err := f.FetchObject(tt.key)(context.Background(), "t1")
			wantAppError(t, err, tt.code, tt.status)
		})
	}
}
