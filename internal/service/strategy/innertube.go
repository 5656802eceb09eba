package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

// VideoSource loads a video's player data.
type VideoSource interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
}

// Innertube reads the caption track list from the player endpoint and
// downloads the chosen track as JSON events.
type Innertube struct {
	identities Identities
	source     func(identity.Identity) VideoSource
}

// NewInnertube creates the strategy. A nil source factory builds a
// youtube.Client on the identity's HTTP client.
func NewInnertube(identities Identities, source func(identity.Identity) VideoSource) *Innertube {
	if source == nil {
		source = func(id identity.Identity) VideoSource {
			return &youtube.Client{HTTPClient: id.Client}
		}
	}
	return &Innertube{identities: identities, source: source}
}

// Name implements extraction.Strategy.
func (s *Innertube) Name() string { return config.StrategyInnertube }

// Attempt implements extraction.Strategy.
func (s *Innertube) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	id := s.identities.Next()

	video, err := s.source(id).GetVideoContext(ctx, req.VideoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyLibraryError(err)
	}

	metadata := videoMetadata(req.VideoID, video)

	tracks := make([]extraction.Track, 0, len(video.CaptionTracks))
	for _, t := range video.CaptionTracks {
		if t.BaseURL == "" || strings.Contains(t.BaseURL, "&exp=xpe") {
			continue
		}
		tracks = append(tracks, extraction.Track{LanguageCode: t.LanguageCode, Kind: t.Kind, URL: t.BaseURL})
	}
	if len(tracks) == 0 {
		return nil, extraction.NoCaptions("player response for %s lists no usable caption tracks", req.VideoID)
	}

	options := extraction.LanguageOptions(tracks)
	metadata.AvailableLanguages = options

	track, ok := extraction.SelectTrack(tracks, req.Language, req.Policy)
	if !ok {
		return nil, extraction.LanguageUnavailable(req.Language, options)
	}

	body, err := fetch(ctx, id, withQuery(track.URL, "fmt", "json3"), nil)
	if err != nil {
		return nil, err
	}

	return &extraction.Payload{
		Raw:                string(body),
		Format:             parser.FormatUnknown,
		Language:           track.LanguageCode,
		Metadata:           metadata,
		AvailableLanguages: options,
	}, nil
}

func videoMetadata(videoID string, v *youtube.Video) models.VideoMetadata {
	md := models.VideoMetadata{
		VideoID:         videoID,
		Title:           v.Title,
		ChannelName:     v.Author,
		DurationSeconds: int(v.Duration.Seconds()),
	}
	// Thumbnails are listed smallest first.
	for _, th := range v.Thumbnails {
		if th.URL != "" {
			md.ThumbnailURL = th.URL
		}
	}
	return md
}

// classifyLibraryError maps kkdai/youtube errors onto strategy error kinds.
func classifyLibraryError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate):
		return extraction.VideoUnavailable("video is private: %v", err)
	case errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return extraction.Transient(err)
	case errors.Is(err, youtube.ErrLoginRequired):
		return extraction.ClassifyMessage(fmt.Errorf("login required: %w", err))
	}

	var status *youtube.ErrPlayabiltyStatus
	if errors.As(err, &status) {
		if perr := (playabilityStatus{Status: status.Status, Reason: status.Reason}).err(); perr != nil {
			return perr
		}
	}

	return extraction.ClassifyMessage(err)
}
