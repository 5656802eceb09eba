package strategy

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
)

// Relay asks a third-party caption relay. The relay's response body is the
// caption payload in any supported format.
type Relay struct {
	identities Identities
	baseURL    string
	apiKey     string
}

// NewRelay creates the strategy.
func NewRelay(identities Identities, baseURL, apiKey string) *Relay {
	return &Relay{identities: identities, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Name implements extraction.Strategy.
func (s *Relay) Name() string { return config.StrategyRelay }

// Attempt implements extraction.Strategy.
func (s *Relay) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	if s.baseURL == "" {
		return nil, extraction.NoCaptions("relay base URL is not configured")
	}

	q := url.Values{}
	q.Set("videoId", req.VideoID)
	q.Set("lang", req.Language)

	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"X-API-Key": s.apiKey}
	}

	// Platform cookies are never sent to the relay.
	id := s.identities.Next()
	id.Cookie = ""

	body, err := fetch(ctx, id, s.baseURL+"/captions?"+q.Encode(), headers)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, extraction.NoCaptions("relay returned no captions for %s", req.VideoID)
	}

	return &extraction.Payload{
		Raw:      string(body),
		Format:   parser.FormatUnknown,
		Language: req.Language,
	}, nil
}
