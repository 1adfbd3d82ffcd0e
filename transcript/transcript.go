package transcript

import (
	"math"
	"strings"

	"github.com/kbukum/transcriber/transcription"
)

// Document is the structured artifact written for every completed task.
type Document struct {
	Source   string  `json:"source"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration_seconds"`
	Text     string  `json:"text"`
	Topics   []Topic `json:"topics"`
}

// Topic is a run of consecutive segments.
type Topic struct {
	Index    int                     `json:"index"`
	Headline string                  `json:"headline"`
	Start    float64                 `json:"start"`
	End      float64                 `json:"end"`
	Segments []transcription.Segment `json:"segments"`
}

// SegmentCount returns the number of segments across all topics.
func (d *Document) SegmentCount() int {
	n := 0
	for _, t := range d.Topics {
		n += len(t.Segments)
	}
	return n
}

// groupTopics splits segments into at most maxTopics runs of at least
// minSize segments each. Cut points prefer the longest pause near each
// even split so topics tend to end on silence.
func groupTopics(segs []transcription.Segment, minSize, maxTopics int) [][]transcription.Segment {
	n := len(segs)
	if n == 0 {
		return nil
	}
	count := n / minSize
	if count > maxTopics {
		count = maxTopics
	}
	if count <= 1 {
		return [][]transcription.Segment{segs}
	}

	size := float64(n) / float64(count)
	// How far a cut may move from its even position while every topic
	// keeps at least minSize segments.
	slack := int(math.Floor(size)) - minSize
	if slack < 0 {
		slack = 0
	}
	slack /= 2

	groups := make([][]transcription.Segment, 0, count)
	start := 0
	for i := 1; i < count; i++ {
		target := int(math.Round(size * float64(i)))
		cut := bestCut(segs, target, slack, start+minSize, n-minSize*(count-i))
		groups = append(groups, segs[start:cut])
		start = cut
	}
	return append(groups, segs[start:])
}

// bestCut returns the index in [target-slack, target+slack] ∩ [lo, hi]
// with the longest gap before it.
func bestCut(segs []transcription.Segment, target, slack, lo, hi int) int {
	from, to := max(target-slack, lo), min(target+slack, hi)
	if from > to {
		return min(max(target, lo), hi)
	}
	best, bestGap := from, -1.0
	for i := from; i <= to; i++ {
		gap := segs[i].Start - segs[i-1].End
		if gap > bestGap {
			best, bestGap = i, gap
		}
	}
	return best
}

const headlineWords = 8

// headline takes the first words of a topic as its title.
func headline(segs []transcription.Segment) string {
	var words []string
	for _, s := range segs {
		words = append(words, strings.Fields(s.Text)...)
		if len(words) >= headlineWords {
			break
		}
	}
	if len(words) == 0 {
		return "(silence)"
	}
	if len(words) > headlineWords {
		return strings.Join(words[:headlineWords], " ") + "..."
	}
	return strings.Join(words, " ")
}
