// Package transcription defines the provider interface and common types
// for interacting with speech-to-text backends.
//
// # Backends
//
//   - transcription/whisper: faster-whisper HTTP sidecar
//
// # Usage
//
//	p, err := transcription.New(cfg)
//	resp, err := p.Transcribe(ctx, transcription.Request{Audio: f, Filename: "call.wav"})
package transcription
