package task

import (
	"fmt"
	"strings"
)

// Format selects an artifact rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts "json" or "md", case-insensitively. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown artifact format %q", s)
}

// ContentType is the HTTP media type for the format.
func (f Format) ContentType() string {
	if f == FormatMarkdown {
		return "text/markdown; charset=utf-8"
	}
	return "application/json"
}

// Path picks the record's artifact path for the format.
func (f Format) Path(r *Record) *string {
	if f == FormatMarkdown {
		return r.TranscribedMDFile
	}
	return r.TranscribedJSONFile
}
