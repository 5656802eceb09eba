package models

import (
	"fmt"
	"strings"
)

// Placeholder values used when a metadata field could not be resolved.
const (
	PlaceholderTitle   = "Unknown"
	PlaceholderChannel = "Unknown Channel"

	placeholderChannelShort = "Unknown"
)

// LanguageOption is one caption language offered for a video.
type LanguageOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// VideoMetadata describes a video. Empty and placeholder fields are treated
// the same way by Merge.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoMetadata struct {
	VideoID            string           `json:"videoId"`
	Title              string           `json:"title"`
	ChannelName        string           `json:"channelName"`
	ThumbnailURL       string           `json:"thumbnailUrl"`
	DurationSeconds    int              `json:"duration,omitempty"`
	AvailableLanguages []LanguageOption `json:"availableLanguages,omitempty"`
}

// DefaultThumbnailURL is the static thumbnail location for a video.
func DefaultThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// PlaceholderVideoTitle is the generated title used when none is known.
func PlaceholderVideoTitle(videoID string) string {
	return "Video " + videoID
}

// IsPlaceholderTitle reports whether title carries no real information.
func IsPlaceholderTitle(title, videoID string) bool {
	title = strings.TrimSpace(title)
	return title == "" || title == PlaceholderTitle || (videoID != "" && title == PlaceholderVideoTitle(videoID))
}

// IsPlaceholderChannel reports whether name carries no real information.
func IsPlaceholderChannel(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == PlaceholderChannel || name == placeholderChannelShort
}

// IsPlaceholderThumbnail reports whether thumbnailURL is empty or the static default.
func IsPlaceholderThumbnail(thumbnailURL, videoID string) bool {
	thumbnailURL = strings.TrimSpace(thumbnailURL)
	return thumbnailURL == "" || (videoID != "" && thumbnailURL == DefaultThumbnailURL(videoID))
}

// HasCoreFields reports whether title, channel and thumbnail are all real values.
func (m VideoMetadata) HasCoreFields() bool {
	return !IsPlaceholderTitle(m.Title, m.VideoID) &&
		!IsPlaceholderChannel(m.ChannelName) &&
		!IsPlaceholderThumbnail(m.ThumbnailURL, m.VideoID)
}

// IsComplete reports whether every field, optional ones included, is populated.
func (m VideoMetadata) IsComplete() bool {
	return m.HasCoreFields() && m.DurationSeconds > 0 && len(m.AvailableLanguages) > 0
}

// Merge returns m with any empty or placeholder field replaced by the
// corresponding real value from delta. Real values in m are never overwritten.
func (m VideoMetadata) Merge(delta VideoMetadata) VideoMetadata {
	if m.VideoID == "" {
		m.VideoID = delta.VideoID
	}
	if IsPlaceholderTitle(m.Title, m.VideoID) && !IsPlaceholderTitle(delta.Title, m.VideoID) {
		m.Title = strings.TrimSpace(delta.Title)
	}
	if IsPlaceholderChannel(m.ChannelName) && !IsPlaceholderChannel(delta.ChannelName) {
		m.ChannelName = strings.TrimSpace(delta.ChannelName)
	}
	if IsPlaceholderThumbnail(m.ThumbnailURL, m.VideoID) && !IsPlaceholderThumbnail(delta.ThumbnailURL, m.VideoID) {
		m.ThumbnailURL = strings.TrimSpace(delta.ThumbnailURL)
	}
	if m.DurationSeconds <= 0 && delta.DurationSeconds > 0 {
		m.DurationSeconds = delta.DurationSeconds
	}
	if len(m.AvailableLanguages) == 0 && len(delta.AvailableLanguages) > 0 {
		m.AvailableLanguages = append([]LanguageOption(nil), delta.AvailableLanguages...)
	}
	return m
}

// WithPlaceholders fills every empty core field with its placeholder.
func (m VideoMetadata) WithPlaceholders() VideoMetadata {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = PlaceholderVideoTitle(m.VideoID)
	}
	if strings.TrimSpace(m.ChannelName) == "" {
		m.ChannelName = PlaceholderChannel
	}
	if strings.TrimSpace(m.ThumbnailURL) == "" {
		m.ThumbnailURL = DefaultThumbnailURL(m.VideoID)
	}
	return m
}
