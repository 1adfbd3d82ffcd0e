// Package transcriptiontest provides a scripted transcription provider.
package transcriptiontest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/kbukum/transcriber/transcription"
)

// Provider returns Response (or Err) for every call and records the audio
// it was given.
type Provider struct {
	Response  *transcription.Response
	Err       error
	Available bool

	mu    sync.Mutex
	calls []string
}

// New returns a provider that answers with n evenly spaced segments.
func New(n int) *Provider {
	return &Provider{Response: Segments(n), Available: true}
}

// Segments builds a response with n one-second segments.
func Segments(n int) *transcription.Response {
	resp := &transcription.Response{Language: "en", Duration: float64(n)}
	for i := 0; i < n; i++ {
		resp.Segments = append(resp.Segments, transcription.Segment{
			Start: float64(i),
			End:   float64(i + 1),
			Text:  fmt.Sprintf("sentence number %d", i+1),
		})
	}
	return resp
}

func (p *Provider) Name() string { return "scripted" }

func (p *Provider) IsAvailable(context.Context) bool { return p.Available }

func (p *Provider) Transcribe(_ context.Context, req transcription.Request) (*transcription.Response, error) {
	data, err := io.ReadAll(req.Audio)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, string(data))
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// Calls returns the audio payloads received so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

var _ transcription.Provider = (*Provider)(nil)
