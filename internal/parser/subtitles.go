package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

const plainLineInterval = 3.0

var cueTimingRegex = regexp.MustCompile(`^\s*((?:\d+:)?\d{1,2}:\d{2}(?:[.,]\d{1,3})?)\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}(?:[.,]\d{1,3})?)`)

var inlineTimingRegex = regexp.MustCompile(`<\d{2}:\d{2}(?::\d{2})?\.\d{3}>|<c[.>]`)

// ParseVTT parses WebVTT. Header, NOTE, STYLE and REGION blocks are skipped
// and inline tags are stripped. Every timed block yields one cue.
//
// Auto-generated captions (recognizable by inline word timing or <c> spans)
// repeat the previous cue's line at the top of each block; those carried-over
// lines are trimmed. A block made up only of carried-over lines keeps its
// text.
func ParseVTT(raw string) []models.CaptionCue {
	var (
		cues      []models.CaptionCue
		prevLines map[string]bool
	)
	rolling := inlineTimingRegex.MatchString(raw)

	for _, block := range splitBlocks(raw) {
		head := strings.TrimSpace(block[0])
		if strings.HasPrefix(head, "WEBVTT") || strings.HasPrefix(head, "NOTE") ||
			strings.HasPrefix(head, "STYLE") || strings.HasPrefix(head, "REGION") {
			continue
		}

		start, end, body, ok := splitTimedBlock(block)
		if !ok {
			continue
		}

		seen := make(map[string]bool, len(body))
		var all, fresh []string
		for _, line := range body {
			text := cleanText(line)
			if text == "" {
				continue
			}
			seen[text] = true
			all = append(all, text)
			if !prevLines[text] {
				fresh = append(fresh, text)
			}
		}
		prevLines = seen

		kept := all
		if rolling && len(fresh) > 0 {
			kept = fresh
		}
		if len(kept) == 0 {
			continue
		}
		cues = append(cues, models.NewCaptionCue(strings.Join(kept, " "), start, end-start))
	}

	return cues
}

// ParseSRT parses SubRip, skipping index lines and keeping cue timing.
func ParseSRT(raw string) []models.CaptionCue {
	var cues []models.CaptionCue

	for _, block := range splitBlocks(raw) {
		start, end, body, ok := splitTimedBlock(block)
		if !ok {
			continue
		}

		var parts []string
		for _, line := range body {
			if text := cleanText(line); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		cues = append(cues, models.NewCaptionCue(strings.Join(parts, " "), start, end-start))
	}

	return cues
}

// ParsePlain turns every non-empty line into a cue on a synthetic
// three-second grid.
func ParsePlain(raw string) []models.CaptionCue {
	var cues []models.CaptionCue

	for _, line := range splitLines(raw) {
		text := cleanText(line)
		if text == "" {
			continue
		}
		start := float64(len(cues)) * plainLineInterval
		cues = append(cues, models.NewCaptionCue(text, start, plainLineInterval))
	}

	return cues
}

// splitTimedBlock locates the timing line of a cue block and returns the
// parsed range together with the text lines that follow it.
func splitTimedBlock(block []string) (start, end float64, body []string, ok bool) {
	for i, line := range block {
		// Cue identifiers and SRT indexes precede the timing line.
		if !strings.Contains(line, "-->") {
			continue
		}

		m := cueTimingRegex.FindStringSubmatch(line)
		if m == nil {
			return 0, 0, nil, false
		}
		start = parseClock(m[1])
		end = parseClock(m[2])
		if end < start {
			end = start
		}
		return start, end, block[i+1:], true
	}
	return 0, 0, nil, false
}

// parseClock converts HH:MM:SS.mmm, MM:SS.mmm or the SRT comma form to seconds.
func parseClock(v string) float64 {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	parts := strings.Split(v, ":")

	var total float64
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0
		}
		total = total*60 + f
	}
	return total
}
