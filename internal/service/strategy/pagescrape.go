package strategy

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// DefaultWatchBaseURL is the origin used for watch page requests.
const DefaultWatchBaseURL = "https://www.youtube.com"

var botCheckMarkers = [][]byte{
	[]byte("confirm you're not a bot"),
	[]byte("confirm you’re not a bot"),
	[]byte("unusual traffic from your computer"),
	[]byte("/sorry/index"),
}

// PageScrape fetches the public watch page, reads the embedded player
// response and downloads the selected timedtext track as XML.
type PageScrape struct {
	identities Identities
	baseURL    string
}

// NewPageScrape creates the strategy. An empty baseURL uses DefaultWatchBaseURL.
func NewPageScrape(identities Identities, baseURL string) *PageScrape {
	if baseURL == "" {
		baseURL = DefaultWatchBaseURL
	}
	return &PageScrape{identities: identities, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name implements extraction.Strategy.
func (s *PageScrape) Name() string { return config.StrategyPageScrape }

// Attempt implements extraction.Strategy.
func (s *PageScrape) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	id := s.identities.Next()

	watchURL := fmt.Sprintf("%s/watch?v=%s&hl=en", s.baseURL, url.QueryEscape(req.VideoID))
	page, err := fetch(ctx, id, watchURL, nil)
	if err != nil {
		if extraction.KindOf(err) == extraction.KindRateLimited {
			s.identities.Retire(id.Cookie)
		}
		return nil, err
	}

	if isBotCheck(page) {
		s.identities.Retire(id.Cookie)
		return nil, extraction.RateLimited(fmt.Errorf("watch page for %s served a bot check", req.VideoID))
	}

	raw, err := extractPlayerResponse(page)
	if err != nil {
		return nil, extraction.ParseFailure(err)
	}
	pr, err := parsePlayerResponse(raw)
	if err != nil {
		return nil, err
	}

	track, options, err := pr.selectTrack(req.VideoID, req)
	if err != nil {
		return nil, err
	}

	trackURL := track.URL
	if strings.HasPrefix(trackURL, "/") {
		trackURL = s.baseURL + trackURL
	}
	body, err := fetch(ctx, id, trackURL, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, extraction.NoCaptions("timedtext returned an empty body for %s", req.VideoID)
	}

	metadata := pr.metadata(req.VideoID)
	metadata.AvailableLanguages = options

	return &extraction.Payload{
		Raw:                string(body),
		Format:             parser.FormatXML,
		Language:           track.LanguageCode,
		Metadata:           metadata,
		AvailableLanguages: options,
	}, nil
}

func isBotCheck(page []byte) bool {
	if bytes.Contains(page, []byte("ytInitialPlayerResponse")) {
		return false
	}
	lower := bytes.ToLower(page)
	for _, m := range botCheckMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}
