package strategy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

type fakeVideoSource struct {
	video *youtube.Video
	err   error
}

func (f fakeVideoSource) GetVideoContext(context.Context, string) (*youtube.Video, error) {
	return f.video, f.err
}

func sourceOf(v *youtube.Video, err error) func(identity.Identity) VideoSource {
	return func(identity.Identity) VideoSource { return fakeVideoSource{video: v, err: err} }
}

func TestInnertube_Attempt(t *testing.T) {
	var gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("fmt")
		assert.Equal(t, "ja", r.URL.Query().Get("lang"))
		fmt.Fprint(w, json3Body)
	}))
	defer srv.Close()

	video := &youtube.Video{
		ID:       "dQw4w9WgXcQ",
		Title:    "Title",
		Author:   "Channel",
		Duration: 212 * time.Second,
		CaptionTracks: []youtube.CaptionTrack{
			{BaseURL: srv.URL + "/api/timedtext?lang=en&kind=asr", LanguageCode: "en", Kind: "asr"},
			{BaseURL: srv.URL + "/api/timedtext?lang=ja", LanguageCode: "ja"},
			{BaseURL: srv.URL + "/api/timedtext?lang=ko&exp=xpe", LanguageCode: "ko"},
		},
	}

	s := NewInnertube(&fakeIdentities{}, sourceOf(video, nil))
	p, err := s.Attempt(context.Background(), extraction.AttemptRequest{
		VideoID:  "dQw4w9WgXcQ",
		Language: "ja",
		Policy:   extraction.DefaultLanguagePolicy,
	})
	require.NoError(t, err)

	assert.Equal(t, "json3", gotFormat)
	assert.Equal(t, json3Body, p.Raw)
	assert.Equal(t, parser.FormatUnknown, p.Format)
	assert.Equal(t, "ja", p.Language)
	assert.Equal(t, "Title", p.Metadata.Title)
	assert.Equal(t, "Channel", p.Metadata.ChannelName)
	assert.Equal(t, 212, p.Metadata.DurationSeconds)
	assert.Len(t, p.AvailableLanguages, 2)

	track, err := parser.Parse(p.Raw, p.Format)
	require.NoError(t, err)
	assert.Len(t, track.Cues, 2)
}

func TestInnertube_Failures(t *testing.T) {
	tests := []struct {
		name     string
		video    *youtube.Video
		err      error
		language string
		policy   extraction.LanguagePolicy
		want     extraction.ErrorKind
	}{
		{name: "private", err: youtube.ErrVideoPrivate, want: extraction.KindVideoUnavailable},
		{name: "playability error", err: &youtube.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"}, want: extraction.KindVideoUnavailable},
		{name: "bot check", err: &youtube.ErrPlayabiltyStatus{Status: "LOGIN_REQUIRED", Reason: "Sign in to confirm you're not a bot"}, want: extraction.KindRateLimited},
		{name: "unknown error", err: errors.New("unexpected EOF"), want: extraction.KindTransient},
		{name: "no tracks", video: &youtube.Video{Title: "x"}, want: extraction.KindNoCaptions},
		{
			name: "only token-gated tracks",
			video: &youtube.Video{CaptionTracks: []youtube.CaptionTrack{
				{BaseURL: "https://www.youtube.com/api/timedtext?lang=en&exp=xpe", LanguageCode: "en"},
			}},
			want: extraction.KindNoCaptions,
		},
		{
			name: "language unavailable",
			video: &youtube.Video{CaptionTracks: []youtube.CaptionTrack{
				{BaseURL: "https://www.youtube.com/api/timedtext?lang=en", LanguageCode: "en"},
			}},
			language: "ko",
			policy:   extraction.LanguagePolicy{},
			want:     extraction.KindLanguageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			language := tt.language
			if language == "" {
				language = "en"
			}
			_, err := NewInnertube(&fakeIdentities{}, sourceOf(tt.video, tt.err)).Attempt(context.Background(), extraction.AttemptRequest{
				VideoID:  "dQw4w9WgXcQ",
				Language: language,
				Policy:   tt.policy,
			})
			require.Error(t, err)
			assert.Equal(t, tt.want, extraction.KindOf(err))
		})
	}
}
