// Package transcript runs the transcription backend over a task's audio
// and shapes the result into the two artifacts a task produces: a
// structured JSON document and a Markdown rendering grouped into topics.
package transcript
