package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/kbukum/transcriber/httpclient"
	"github.com/kbukum/transcriber/transcription"
	"github.com/kbukum/transcriber/util"
)

// ProviderName is the registered name for the Whisper provider.
const ProviderName = "whisper"

func init() {
	transcription.RegisterFactory(ProviderName, func(cfg transcription.Config) (transcription.Provider, error) {
		return NewProvider(cfg)
	})
}

// Provider implements transcription.Provider using a faster-whisper HTTP sidecar.
type Provider struct {
	cfg    transcription.Config
	client *httpclient.Client
}

// NewProvider creates a new Whisper transcription provider. Calls go through
// a circuit breaker so a dead sidecar fails work units fast.
func NewProvider(cfg transcription.Config) (*Provider, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.URL,
		Timeout:        cfg.Timeout,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	return err == nil
}

// Transcribe streams the audio to the sidecar as a multipart upload.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	fields := map[string]string{"model": util.Coalesce(req.Model, p.cfg.Model)}
	if lang := util.Coalesce(req.Language, p.cfg.Language); lang != "" {
		fields["language"] = lang
	}
	filename := filepath.Base(req.Filename)
	if filename == "." || filename == "/" || filename == "" {
		filename = "audio.wav"
	}

	body, contentType := (&httpclient.MultipartBody{
		Fields: fields,
		Files:  []httpclient.FileField{{FieldName: "audio", FileName: filename, ContentType: "audio/wav", Reader: req.Audio}},
	}).Encode()
	resp, err := p.client.Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        "/transcribe",
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}

	var result whisperResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return toResponse(&result), nil
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

type whisperSegment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

func toResponse(resp *whisperResponse) *transcription.Response {
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		}
	}

	duration := resp.Duration
	if duration == 0 && len(resp.Segments) > 0 {
		duration = resp.Segments[len(resp.Segments)-1].End
	}

	return &transcription.Response{
		Text:     resp.Text,
		Segments: segments,
		Duration: duration,
		Language: resp.Language,
	}
}

var _ transcription.Provider = (*Provider)(nil)
