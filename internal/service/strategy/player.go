package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// playerResponseMarkers locate the player response object in watch page HTML.
var playerResponseMarkers = []string{
	"ytInitialPlayerResponse = ",
	"ytInitialPlayerResponse=",
	`window["ytInitialPlayerResponse"] = `,
}

type playerResponse struct {
	PlayabilityStatus *playabilityStatus `json:"playabilityStatus"`
	Captions          *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []playerCaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails *struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		Author        string `json:"author"`
		LengthSeconds string `json:"lengthSeconds"`
		Thumbnail     struct {
			Thumbnails []struct {
				URL   string `json:"url"`
				Width int    `json:"width"`
			} `json:"thumbnails"`
		} `json:"thumbnail"`
	} `json:"videoDetails"`
}

type playabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type playerCaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

// parsePlayerResponse decodes a player response JSON document.
func parsePlayerResponse(data []byte) (*playerResponse, error) {
	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, extraction.ParseFailure(fmt.Errorf("decode player response: %w", err))
	}
	return &pr, nil
}

// extractPlayerResponse cuts the player response object out of watch page HTML.
func extractPlayerResponse(page []byte) ([]byte, error) {
	s := string(page)
	for _, marker := range playerResponseMarkers {
		idx := strings.Index(s, marker)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(s[idx+len(marker):], " ")
		if obj := balancedJSON(rest); obj != "" {
			return []byte(obj), nil
		}
	}
	return nil, errors.New("ytInitialPlayerResponse not found in watch page")
}

// balancedJSON returns the JSON object at the start of s, tracking string
// literals so braces inside strings are ignored.
func balancedJSON(s string) string {
	if s == "" || s[0] != '{' {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// check converts a non-OK playability status into a strategy error.
func (p *playerResponse) check() error {
	if p.PlayabilityStatus == nil {
		return nil
	}
	return p.PlayabilityStatus.err()
}

func (ps playabilityStatus) err() error {
	status, reason := ps.Status, ps.Reason
	switch status {
	case "", "OK":
		return nil
	case "LOGIN_REQUIRED":
		lower := strings.ToLower(reason)
		if strings.Contains(lower, "bot") {
			return extraction.RateLimited(fmt.Errorf("bot check: %s", reason))
		}
		if strings.Contains(lower, "private") {
			return extraction.VideoUnavailable("video is private: %s", reason)
		}
		return extraction.Transient(fmt.Errorf("login required: %s", reason))
	case "ERROR", "UNPLAYABLE":
		return extraction.VideoUnavailable("video unavailable: %s", reason)
	case "LIVE_STREAM_OFFLINE":
		return extraction.NoCaptions("live stream offline: %s", reason)
	default:
		return extraction.Transient(fmt.Errorf("playability status %s: %s", status, reason))
	}
}

// tracks lists caption tracks that can be fetched without a browser-only
// proof-of-origin token.
func (p *playerResponse) tracks() []extraction.Track {
	if p.Captions == nil {
		return nil
	}
	raw := p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]extraction.Track, 0, len(raw))
	for _, t := range raw {
		if t.BaseURL == "" || strings.Contains(t.BaseURL, "&exp=xpe") {
			continue
		}
		name := t.Name.SimpleText
		if name == "" && len(t.Name.Runs) > 0 {
			name = t.Name.Runs[0].Text
		}
		tracks = append(tracks, extraction.Track{
			LanguageCode: t.LanguageCode,
			Name:         name,
			Kind:         t.Kind,
			URL:          t.BaseURL,
		})
	}
	return tracks
}

// metadata extracts the video details carried by the player response.
func (p *playerResponse) metadata(videoID string) models.VideoMetadata {
	md := models.VideoMetadata{VideoID: videoID}
	if p.VideoDetails == nil {
		return md
	}
	md.Title = p.VideoDetails.Title
	md.ChannelName = p.VideoDetails.Author
	if n, err := strconv.Atoi(p.VideoDetails.LengthSeconds); err == nil {
		md.DurationSeconds = n
	}
	best := 0
	for _, th := range p.VideoDetails.Thumbnail.Thumbnails {
		if th.URL != "" && th.Width >= best {
			best = th.Width
			md.ThumbnailURL = th.URL
		}
	}
	return md
}

// selectTrack runs the language waterfall over the player's tracks.
func (p *playerResponse) selectTrack(videoID string, req extraction.AttemptRequest) (extraction.Track, []models.LanguageOption, error) {
	if err := p.check(); err != nil {
		return extraction.Track{}, nil, err
	}
	tracks := p.tracks()
	if len(tracks) == 0 {
		if p.Captions != nil && len(p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) > 0 {
			return extraction.Track{}, nil, extraction.NoCaptions("all caption tracks for %s require a browser session", videoID)
		}
		return extraction.Track{}, nil, extraction.NoCaptions("no caption tracks for %s", videoID)
	}

	options := extraction.LanguageOptions(tracks)
	track, ok := extraction.SelectTrack(tracks, req.Language, req.Policy)
	if !ok {
		return extraction.Track{}, options, extraction.LanguageUnavailable(req.Language, options)
	}
	return track, options, nil
}
