package transcription

import "io"

// Request holds parameters for a transcription call.
type Request struct {
	// Audio is the audio stream to transcribe.
	Audio io.Reader
	// Filename is sent along with the audio; backends use its extension.
	Filename string
	// Language is the expected language of the audio (e.g. "en").
	Language string
	// Model overrides the configured model.
	Model string
}

// Response holds the result of a transcription call.
type Response struct {
	// Text is the full transcription text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript segments.
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}
