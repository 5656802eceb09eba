// Package parser normalizes the caption payload formats served by YouTube and
// its mirrors into models.CaptionTrack values.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// Format identifies a caption payload encoding.
type Format string

// Supported payload formats. FormatUnknown asks Parse to sniff the payload.
const (
	FormatUnknown        Format = ""
	FormatXML            Format = "xml"
	FormatJSONEvents     Format = "json3"
	FormatTranscriptList Format = "transcript_list"
	FormatVTT            Format = "vtt"
	FormatSRT            Format = "srt"
	FormatPlain          Format = "plain"
)

var (
	// ErrEmptyPayload is returned when the payload contains nothing but whitespace.
	ErrEmptyPayload = errors.New("empty caption payload")
	// ErrMalformedPayload is returned when a structured payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed caption payload")
)

var srtPrefixRegex = regexp.MustCompile(`^\d+\s*\r?\n\s*\d{1,2}:\d{2}:\d{2}[,.]\d{1,3}\s*-->`)

// Parse converts raw into a caption track using hint, or by sniffing the
// payload when hint is FormatUnknown.
func Parse(raw string, hint Format) (models.CaptionTrack, error) {
	raw = strings.TrimPrefix(raw, "\ufeff")
	if strings.TrimSpace(raw) == "" {
		return models.CaptionTrack{}, ErrEmptyPayload
	}

	format := hint
	if format == FormatUnknown {
		format = Sniff(raw)
	}

	var (
		cues []models.CaptionCue
		err  error
	)

	switch format {
	case FormatXML:
		cues, err = ParseXML(raw)
	case FormatJSONEvents:
		cues, err = ParseJSONEvents(raw)
	case FormatTranscriptList:
		cues, err = ParseTranscriptList(raw)
	case FormatVTT:
		cues = ParseVTT(raw)
	case FormatSRT:
		cues = ParseSRT(raw)
	case FormatPlain:
		cues = ParsePlain(raw)
	default:
		return models.CaptionTrack{}, fmt.Errorf("unsupported caption format %q", format)
	}
	if err != nil {
		return models.CaptionTrack{}, fmt.Errorf("parse %s payload: %w", format, err)
	}

	return models.NewCaptionTrack(cues, string(format)), nil
}

// Sniff guesses the payload format from its leading bytes.
func Sniff(raw string) Format {
	trimmed := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))

	switch {
	case strings.HasPrefix(trimmed, "<?xml"),
		strings.HasPrefix(trimmed, "<transcript"),
		strings.HasPrefix(trimmed, "<timedtext"):
		return FormatXML
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSONEvents
	case strings.HasPrefix(trimmed, "["):
		return FormatTranscriptList
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT
	case srtPrefixRegex.MatchString(trimmed):
		return FormatSRT
	default:
		return FormatPlain
	}
}

// FormatFromExtension maps a subtitle file extension to its format.
func FormatFromExtension(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "vtt":
		return FormatVTT
	case "srt":
		return FormatSRT
	case "xml", "srv1", "srv2", "srv3", "ttml":
		return FormatXML
	case "json3", "json":
		return FormatJSONEvents
	case "txt":
		return FormatPlain
	default:
		return FormatUnknown
	}
}
