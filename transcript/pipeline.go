package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/transcriber/transcription"
)

// Defaults for topic grouping.
const (
	DefaultMinSegments = 10
	DefaultMaxTopics   = 25
)

// ErrEmptyTranscript is returned when the backend produced no text.
var ErrEmptyTranscript = errors.New("transcript: transcription produced no text")

// Pipeline turns audio into a Document: transcribe, then group into topics.
type Pipeline struct {
	provider    transcription.Provider
	minSegments int
	maxTopics   int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopicLimits overrides the minimum segments per topic and the topic cap.
func WithTopicLimits(minSegments, maxTopics int) Option {
	return func(p *Pipeline) {
		if minSegments > 0 {
			p.minSegments = minSegments
		}
		if maxTopics > 0 {
			p.maxTopics = maxTopics
		}
	}
}

// NewPipeline creates a pipeline on a transcription backend.
func NewPipeline(provider transcription.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{provider: provider, minSegments: DefaultMinSegments, maxTopics: DefaultMaxTopics}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Provider returns the underlying backend.
func (p *Pipeline) Provider() transcription.Provider { return p.provider }

// Run transcribes audio and returns the structured document. source names
// the original file and ends up in both renderings.
func (p *Pipeline) Run(ctx context.Context, audio io.Reader, source string) (*Document, error) {
	resp, err := p.provider.Transcribe(ctx, transcription.Request{Audio: audio, Filename: source})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	segs := resp.Segments
	if len(segs) == 0 && strings.TrimSpace(resp.Text) != "" {
		segs = []transcription.Segment{{Start: 0, End: resp.Duration, Text: resp.Text}}
	}
	if len(segs) == 0 {
		return nil, ErrEmptyTranscript
	}

	text := resp.Text
	if strings.TrimSpace(text) == "" {
		parts := make([]string, len(segs))
		for i, s := range segs {
			parts[i] = strings.TrimSpace(s.Text)
		}
		text = strings.Join(parts, " ")
	}

	doc := &Document{
		Source:   source,
		Language: resp.Language,
		Duration: resp.Duration,
		Text:     strings.TrimSpace(text),
	}
	for i, g := range groupTopics(segs, p.minSegments, p.maxTopics) {
		doc.Topics = append(doc.Topics, Topic{
			Index:    i + 1,
			Headline: headline(g),
			Start:    g[0].Start,
			End:      g[len(g)-1].End,
			Segments: g,
		})
	}
	return doc, nil
}
