package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSON renders the structured artifact.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Markdown renders the human-readable artifact.
func (d *Document) Markdown() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transcript: %s\n\n", d.Source)
	if d.Language != "" {
		fmt.Fprintf(&b, "- Language: %s\n", d.Language)
	}
	fmt.Fprintf(&b, "- Duration: %s\n", timestamp(d.Duration))
	fmt.Fprintf(&b, "- Topics: %d\n\n", len(d.Topics))

	if len(d.Topics) > 1 {
		b.WriteString("## Contents\n\n")
		for _, t := range d.Topics {
			fmt.Fprintf(&b, "%d. %s (%s)\n", t.Index, t.Headline, timestamp(t.Start))
		}
		b.WriteString("\n")
	}

	for _, t := range d.Topics {
		fmt.Fprintf(&b, "## %d. %s\n\n", t.Index, t.Headline)
		fmt.Fprintf(&b, "_%s - %s_\n\n", timestamp(t.Start), timestamp(t.End))
		for _, s := range t.Segments {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			if s.Speaker != "" {
				fmt.Fprintf(&b, "**[%s] %s:** %s\n\n", timestamp(s.Start), s.Speaker, text)
			} else {
				fmt.Fprintf(&b, "**[%s]** %s\n\n", timestamp(s.Start), text)
			}
		}
	}
	return []byte(b.String())
}

func timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
