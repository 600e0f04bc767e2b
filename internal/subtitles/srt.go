// Package subtitles renders SRT documents from sentence timing. The external
// service produces the authoritative subtitle file; this package backs the
// local preview endpoint so an operator can inspect cue text and timing
// without waiting on a round trip.
package subtitles

import (
	"fmt"
	"strings"

	"revoice/internal/session"
)

// Cue is one numbered SRT entry.
type Cue struct {
	Index   int
	StartMS int64
	EndMS   int64
	Text    string
}

// FormatTimestamp renders milliseconds as an SRT timestamp, HH:MM:SS,mmm.
// Negative values clamp to zero.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	s := (ms % 60_000) / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// BuildCues converts sentences into numbered cues, preserving order and
// skipping entries with no text.
func BuildCues(sentences []session.Sentence) []Cue {
	cues := make([]Cue, 0, len(sentences))
	for _, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		cues = append(cues, Cue{
			Index:   len(cues) + 1,
			StartMS: s.BeginMS,
			EndMS:   s.EndMS,
			Text:    text,
		})
	}
	return cues
}

// Render writes the cues as a complete SRT document.
func Render(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", cue.Index, FormatTimestamp(cue.StartMS), FormatTimestamp(cue.EndMS), cue.Text)
	}
	return b.String()
}

// Preview renders an SRT document straight from sentences.
func Preview(sentences []session.Sentence) string {
	return Render(BuildCues(sentences))
}
