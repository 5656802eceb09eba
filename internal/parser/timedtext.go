package parser

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// timedTextDocument covers both timedtext layouts YouTube serves:
// <transcript><text start dur> (seconds) and srv3 <timedtext><body><p t d> (milliseconds).
type timedTextDocument struct {
	Lines []timedTextLine `xml:"text"`
	Body  *timedTextBody  `xml:"body"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Inner string `xml:",innerxml"`
}

type timedTextBody struct {
	Paragraphs []timedTextParagraph `xml:"p"`
}

type timedTextParagraph struct {
	T     string `xml:"t,attr"`
	D     string `xml:"d,attr"`
	Inner string `xml:",innerxml"`
}

var (
	textElementRegex = regexp.MustCompile(`(?s)<text\b([^>]*)>(.*?)</text>`)
	attributeRegex   = regexp.MustCompile(`([a-zA-Z_:]+)\s*=\s*"([^"]*)"`)
)

// ParseXML parses YouTube timedtext XML. Documents that fail strict XML
// decoding fall back to a tolerant scan of <text> elements.
func ParseXML(raw string) ([]models.CaptionCue, error) {
	var doc timedTextDocument
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		cues := scanTextElements(raw)
		if len(cues) == 0 {
			return nil, ErrMalformedPayload
		}
		return cues, nil
	}

	cues := make([]models.CaptionCue, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := cleanText(line.Inner)
		if text == "" {
			continue
		}
		cues = append(cues, models.NewCaptionCue(text, parseSeconds(line.Start), parseSeconds(line.Dur)))
	}

	if doc.Body != nil {
		for _, p := range doc.Body.Paragraphs {
			text := cleanText(p.Inner)
			if text == "" {
				continue
			}
			cues = append(cues, models.NewCaptionCue(text, parseMillis(p.T), parseMillis(p.D)))
		}
	}

	return cues, nil
}

func scanTextElements(raw string) []models.CaptionCue {
	var cues []models.CaptionCue

	for _, match := range textElementRegex.FindAllStringSubmatch(raw, -1) {
		text := cleanText(match[2])
		if text == "" {
			continue
		}

		var start, dur string
		for _, attr := range attributeRegex.FindAllStringSubmatch(match[1], -1) {
			switch attr[1] {
			case "start":
				start = attr[2]
			case "dur":
				dur = attr[2]
			}
		}

		cues = append(cues, models.NewCaptionCue(text, parseSeconds(start), parseSeconds(dur)))
	}

	return cues
}

func parseSeconds(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseMillis(v string) float64 {
	return parseSeconds(v) / 1000
}
