package models

import (
	"fmt"
	"math"
	"strings"
)

// CaptionCue is a single timed caption line. Values are normalized at
// construction time and never mutated afterwards.
type CaptionCue struct {
	Text           string  `json:"text"`
	Start          float64 `json:"start"`
	Duration       float64 `json:"duration"`
	StartFormatted string  `json:"startFormatted"`
	End            float64 `json:"end"`
}

// NewCaptionCue builds a cue, clamping negative or NaN timing to zero and
// deriving End and StartFormatted.
func NewCaptionCue(text string, start, duration float64) CaptionCue {
	start = clampSeconds(start)
	duration = clampSeconds(duration)

	return CaptionCue{
		Text:           text,
		Start:          start,
		Duration:       duration,
		StartFormatted: FormatTimestamp(start),
		End:            start + duration,
	}
}

// FormatTimestamp renders whole seconds as MM:SS. Minutes keep counting past 59.
func FormatTimestamp(seconds float64) string {
	total := int(clampSeconds(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func clampSeconds(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CaptionTrack is the normalized result of parsing one caption payload.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type CaptionTrack struct {
	Cues         []CaptionCue `json:"cues"`
	FullText     string       `json:"text"`
	LanguageCode string       `json:"language,omitempty"`
	Format       string       `json:"format,omitempty"`
}

// NewCaptionTrack builds a track whose FullText is the newline-joined cue text.
func NewCaptionTrack(cues []CaptionCue, format string) CaptionTrack {
	if cues == nil {
		cues = []CaptionCue{}
	}

	lines := make([]string, 0, len(cues))
	for _, cue := range cues {
		lines = append(lines, cue.Text)
	}

	return CaptionTrack{
		Cues:     cues,
		FullText: strings.Join(lines, "\n"),
		Format:   format,
	}
}

// WithLanguage returns a copy of the track tagged with the served language.
func (t CaptionTrack) WithLanguage(code string) CaptionTrack {
	t.LanguageCode = code
	return t
}
