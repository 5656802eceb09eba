package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript"
	"github.com/horiagug/youtube-transcript-api-go/pkg/yt_transcript_models"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// TranscriptFetcher returns the timed transcript lines of videoID in lang.
type TranscriptFetcher func(videoID, lang string) ([]yt_transcript_models.TranscriptLine, error)

// transcriptListEntry is one element of the parser.FormatTranscriptList payload.
type transcriptListEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptAPI asks the transcript-data endpoint for each candidate
// language in turn.
type TranscriptAPI struct {
	fetch TranscriptFetcher
}

// NewTranscriptAPI creates the strategy. A nil fetcher uses the
// youtube-transcript-api client.
func NewTranscriptAPI(fetch TranscriptFetcher) *TranscriptAPI {
	if fetch == nil {
		fetch = libraryTranscript
	}
	return &TranscriptAPI{fetch: fetch}
}

// Name implements extraction.Strategy.
func (s *TranscriptAPI) Name() string { return config.StrategyTranscriptAPI }

// Attempt implements extraction.Strategy.
func (s *TranscriptAPI) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	var lastErr error
	for _, lang := range extraction.FallbackLanguages(req.Language, req.Policy) {
		lines, err := s.fetchContext(ctx, req.VideoID, lang)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			se := extraction.ClassifyMessage(err)
			if se.Kind != extraction.KindNoCaptions {
				return nil, se
			}
			lastErr = se
			continue
		}
		raw, err := encodeTranscriptList(lines)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			lastErr = extraction.NoCaptions("empty transcript for %s in %s", req.VideoID, lang)
			continue
		}
		return &extraction.Payload{
			Raw:      raw,
			Format:   parser.FormatTranscriptList,
			Language: lang,
		}, nil
	}
	if lastErr == nil {
		lastErr = extraction.NoCaptions("no transcript for %s", req.VideoID)
	}
	return nil, lastErr
}

// fetchContext runs the blocking library call so that a cancelled context
// releases the caller immediately.
func (s *TranscriptAPI) fetchContext(ctx context.Context, videoID, lang string) ([]yt_transcript_models.TranscriptLine, error) {
	type result struct {
		lines []yt_transcript_models.TranscriptLine
		err   error
	}
	done := make(chan result, 1)
	go func() {
		lines, err := s.fetch(videoID, lang)
		done <- result{lines, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.lines, r.err
	}
}

// encodeTranscriptList keeps each line's own start and duration. It returns
// "" when no line carries text.
func encodeTranscriptList(lines []yt_transcript_models.TranscriptLine) (string, error) {
	entries := make([]transcriptListEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		entries = append(entries, transcriptListEntry{
			Text:     line.Text,
			Start:    line.Start,
			Duration: line.Duration,
		})
	}
	if len(entries) == 0 {
		return "", nil
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return "", extraction.ParseFailure(fmt.Errorf("encode transcript: %w", err))
	}
	return string(raw), nil
}

func libraryTranscript(videoID, lang string) ([]yt_transcript_models.TranscriptLine, error) {
	client := yt_transcript.NewClient()
	transcripts, err := client.GetTranscripts(videoID, []string{lang})
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, errors.New("captions not found")
	}
	return transcripts[0].Lines, nil
}
