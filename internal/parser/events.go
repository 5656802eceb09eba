package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

const defaultEventDurationMs = 2000

type eventsDocument struct {
	Events []captionEvent `json:"events"`
}

type captionEvent struct {
	TStartMs    json.Number    `json:"tStartMs"`
	DDurationMs *json.Number   `json:"dDurationMs"`
	Segs        []eventSegment `json:"segs"`
}

type eventSegment struct {
	UTF8 string `json:"utf8"`
}

// ParseJSONEvents parses the json3 caption format. Events without text are
// dropped and a missing duration defaults to two seconds.
func ParseJSONEvents(raw string) ([]models.CaptionCue, error) {
	var doc eventsDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	cues := make([]models.CaptionCue, 0, len(doc.Events))
	for _, event := range doc.Events {
		if len(event.Segs) == 0 {
			continue
		}

		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := cleanText(sb.String())
		if text == "" {
			continue
		}

		durationMs := float64(defaultEventDurationMs)
		if event.DDurationMs != nil {
			if d, err := event.DDurationMs.Float64(); err == nil {
				durationMs = d
			}
		}

		startMs, _ := event.TStartMs.Float64()
		cues = append(cues, models.NewCaptionCue(text, startMs/1000, durationMs/1000))
	}

	return cues, nil
}

type transcriptEntry struct {
	Text     string       `json:"text"`
	Start    *json.Number `json:"start"`
	Offset   *json.Number `json:"offset"`
	Duration *json.Number `json:"duration"`
	Dur      *json.Number `json:"dur"`
}

// ParseTranscriptList parses a JSON array of {text, start, duration} entries,
// the shape returned by transcript relay services. "offset" and "dur" are
// accepted as aliases.
func ParseTranscriptList(raw string) ([]models.CaptionCue, error) {
	var entries []transcriptEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	cues := make([]models.CaptionCue, 0, len(entries))
	for _, entry := range entries {
		text := cleanText(entry.Text)
		if text == "" {
			continue
		}
		cues = append(cues, models.NewCaptionCue(text,
			firstNumber(entry.Start, entry.Offset),
			firstNumber(entry.Duration, entry.Dur),
		))
	}

	return cues, nil
}

func firstNumber(values ...*json.Number) float64 {
	for _, v := range values {
		if v == nil {
			continue
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}
