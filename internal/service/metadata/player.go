package metadata

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kkdai/youtube/v2"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// VideoGetter loads a video's player data.
type VideoGetter interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
}

// Player reads metadata and caption languages from the player endpoint.
type Player struct {
	client VideoGetter
}

// NewPlayer creates a Player source. A nil client uses a youtube.Client on
// httpClient.
func NewPlayer(client VideoGetter, httpClient *http.Client) *Player {
	if client == nil {
		client = &youtube.Client{HTTPClient: httpClient}
	}
	return &Player{client: client}
}

// Name implements Source.
func (p *Player) Name() string { return "player" }

// Lookup implements Source.
func (p *Player) Lookup(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	v, err := p.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("player lookup: %w", err)
	}

	md := models.VideoMetadata{
		VideoID:         videoID,
		Title:           v.Title,
		ChannelName:     v.Author,
		DurationSeconds: int(v.Duration.Seconds()),
	}
	for _, th := range v.Thumbnails {
		if th.URL != "" {
			md.ThumbnailURL = th.URL
		}
	}

	tracks := make([]extraction.Track, 0, len(v.CaptionTracks))
	for _, t := range v.CaptionTracks {
		tracks = append(tracks, extraction.Track{LanguageCode: t.LanguageCode, Kind: t.Kind})
	}
	md.AvailableLanguages = extraction.LanguageOptions(tracks)

	return md, nil
}
