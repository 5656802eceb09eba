package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sosodev/duration"

	"github.com/ad-tracker/youtube-caption-api-go/internal/models"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

const maxPageBytes = 4 << 20

// Identities hands out outbound request identities.
type Identities interface {
	Next() identity.Identity
}

// Page scrapes the Open Graph and microdata tags of the watch page.
type Page struct {
	identities Identities
	baseURL    string
}

// NewPage creates a Page source. An empty baseURL means https://www.youtube.com.
func NewPage(identities Identities, baseURL string) *Page {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &Page{identities: identities, baseURL: strings.TrimRight(baseURL, "/")}
}

// Name implements Source.
func (p *Page) Name() string { return "page" }

// Lookup implements Source.
func (p *Page) Lookup(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	pageURL := fmt.Sprintf("%s/watch?v=%s&hl=en", p.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.VideoMetadata{}, err
	}

	id := p.identities.Next()
	id.Apply(req)
	client := id.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.VideoMetadata{}, fmt.Errorf("watch page returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("read watch page: %w", err)
	}

	return parseWatchPage(videoID, body)
}

func parseWatchPage(videoID string, body []byte) (models.VideoMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return models.VideoMetadata{}, fmt.Errorf("goquery parse: %w", err)
	}

	md := models.VideoMetadata{VideoID: videoID}

	md.Title = attr(doc, `meta[property="og:title"]`, "content")
	if md.Title == "" {
		md.Title = strings.TrimSpace(strings.TrimSuffix(doc.Find("title").First().Text(), "- YouTube"))
	}
	md.ThumbnailURL = attr(doc, `meta[property="og:image"]`, "content")
	md.ChannelName = attr(doc, `span[itemprop="author"] link[itemprop="name"]`, "content")
	if md.ChannelName == "" {
		md.ChannelName = attr(doc, `link[itemprop="name"]`, "content")
	}

	if raw := attr(doc, `meta[itemprop="duration"]`, "content"); raw != "" {
		if d, err := duration.Parse(raw); err == nil {
			md.DurationSeconds = int(d.ToTimeDuration().Seconds())
		}
	}

	return md, nil
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}
