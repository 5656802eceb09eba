package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/sosodev/duration"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
)

// ErrQuotaExhausted is returned when the daily Data API quota threshold is reached.
var ErrQuotaExhausted = errors.New("YouTube API quota exhausted")

// videos.list costs one quota unit per call.
const videosListCost = 1

// Quota guards Data API calls against the daily quota.
type Quota interface {
	Reserve(cost int, operation string) bool
}

// DataAPI reads metadata from the YouTube Data API v3.
type DataAPI struct {
	service *youtube.Service
	quota   Quota
}

// NewDataAPI creates a Data API source. Extra options are passed to
// youtube.NewService after the API key.
func NewDataAPI(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &DataAPI{service: service}, nil
}

// WithQuota makes Lookup fail without calling the API once q is spent.
func (d *DataAPI) WithQuota(q Quota) *DataAPI {
	d.quota = q
	return d
}

// Name implements Source.
func (d *DataAPI) Name() string { return "data_api" }

// Lookup implements Source.
func (d *DataAPI) Lookup(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	if d.quota != nil && !d.quota.Reserve(videosListCost, "videos.list") {
		return models.VideoMetadata{}, ErrQuotaExhausted
	}

	response, err := d.service.Videos.List([]string{"snippet", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("failed to fetch video from YouTube API: %w", err)
	}
	if len(response.Items) == 0 {
		return models.VideoMetadata{}, fmt.Errorf("video %s not found", videoID)
	}

	item := response.Items[0]
	md := models.VideoMetadata{VideoID: videoID}

	if item.Snippet != nil {
		md.Title = item.Snippet.Title
		md.ChannelName = item.Snippet.ChannelTitle
		md.ThumbnailURL = bestThumbnail(item.Snippet.Thumbnails)
	}

	if item.ContentDetails != nil && item.ContentDetails.Duration != "" {
		if d, err := duration.Parse(item.ContentDetails.Duration); err == nil {
			md.DurationSeconds = int(d.ToTimeDuration().Seconds())
		}
	}

	return md, nil
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
