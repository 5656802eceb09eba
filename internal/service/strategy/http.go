package strategy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

const maxBodyBytes = 8 << 20

// Identities hands out the identity used for each outbound request and
// retires cookies that trip bot detection.
type Identities interface {
	Next() identity.Identity
	Retire(cookie string)
}

// fetch performs a GET with the given identity and returns the body of a 2xx
// response. Other statuses are classified with extraction.FromStatus.
func fetch(ctx context.Context, id identity.Identity, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, extraction.NoCaptions("build request: %v", err)
	}
	id.Apply(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := id.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.Transient(fmt.Errorf("GET %s: %w", redact(rawURL), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, extraction.FromStatus(resp.StatusCode, redact(rawURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.Transient(fmt.Errorf("read %s: %w", redact(rawURL), err))
	}
	return body, nil
}

// redact drops the query string, which for caption URLs carries signatures.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}

// withQuery returns rawURL with key set to value.
func withQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
