package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcriber/resilience"
)

func newClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestDo_BaseURLAndHeaders(t *testing.T) {
	var gotPath, gotUA, gotHdr string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA, gotHdr = r.URL.Path, r.UserAgent(), r.Header.Get("X-Req")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newClient(t, Config{BaseURL: srv.URL + "/", UserAgent: "transcriber-test"})
	resp, err := c.Do(context.Background(), Request{Path: "/health", Headers: map[string]string{"X-Req": "1"}})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "ok" || gotPath != "/health" || gotUA != "transcriber-test" || gotHdr != "1" {
		t.Errorf("body=%q path=%q ua=%q hdr=%q", resp.Body, gotPath, gotUA, gotHdr)
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{422, ErrCodeValidation, false},
		{429, ErrCodeRateLimit, true},
		{503, ErrCodeServer, true},
	}
	for _, tt := range tests {
		e := ClassifyStatusCode(tt.status, nil)
		if e == nil || e.Code != tt.code || e.Retryable != tt.retryable {
			t.Errorf("ClassifyStatusCode(%d) = %+v", tt.status, e)
		}
	}
	if ClassifyStatusCode(204, nil) != nil {
		t.Error("2xx must not be an error")
	}
}

func TestStream_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newClient(t, Config{})
	_, err := c.Stream(context.Background(), Request{Path: srv.URL + "/a.wav"})
	if !hasCode(err, ErrCodeNotFound) || StatusCode(err) != http.StatusNotFound {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "gone") {
		t.Errorf("error body not kept: %v", err)
	}
}

func TestStream_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new.wav", http.StatusFound)
	})
	mux.HandleFunc("/new.wav", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("RIFF"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newClient(t, Config{})
	resp, err := c.Stream(context.Background(), Request{Path: srv.URL + "/old"})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer resp.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "RIFF" || !strings.HasSuffix(resp.URL, "/new.wav") {
		t.Errorf("body=%q url=%q", body, resp.URL)
	}
}

func TestStream_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, Config{Timeout: 50 * time.Millisecond})
	_, err := c.Stream(context.Background(), Request{Path: srv.URL})
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestStream_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, Config{})
	_, err := c.Stream(context.Background(), Request{Path: url})
	if !hasCode(err, ErrCodeConnection) {
		t.Fatalf("err = %v, want connection error", err)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	retry := DefaultRetryConfig()
	retry.InitialBackoff = time.Millisecond
	c := newClient(t, Config{Retry: retry})
	if _, err := c.Do(context.Background(), Request{Path: srv.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	calls.Store(0)
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: srv.URL, Body: strings.NewReader("x")})
	if !hasCode(err, ErrCodeServer) || calls.Load() != 1 {
		t.Errorf("request with body: err=%v calls=%d", err, calls.Load())
	}
}

func TestDo_CircuitBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cb := DefaultCircuitBreakerConfig("sidecar")
	cb.MaxFailures = 2
	c := newClient(t, Config{CircuitBreaker: cb})
	for i := 0; i < 2; i++ {
		_, _ = c.Do(context.Background(), Request{Path: srv.URL})
	}
	_, err := c.Do(context.Background(), Request{Path: srv.URL})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want open circuit", err)
	}
}

func TestMultipartBody(t *testing.T) {
	var gotField, gotFile, gotName, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotFile, gotName, gotType = string(data), hdr.Filename, hdr.Header.Get("Content-Type")
		gotField = r.FormValue("model")
	}))
	defer srv.Close()

	body, ct := (&MultipartBody{
		Fields: map[string]string{"model": "base"},
		Files:  []FileField{{FieldName: "audio", FileName: "call.wav", ContentType: "audio/wav", Reader: strings.NewReader("RIFF")}},
	}).Encode()
	c := newClient(t, Config{})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: srv.URL, Body: body, ContentType: ct}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotField != "base" || gotFile != "RIFF" || gotName != "call.wav" || gotType != "audio/wav" {
		t.Errorf("field=%q file=%q name=%q type=%q", gotField, gotFile, gotName, gotType)
	}
}
