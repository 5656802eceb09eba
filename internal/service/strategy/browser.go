package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ad-tracker/youtube-caption-api-go/internal/config"
	"github.com/ad-tracker/youtube-caption-api-go/internal/parser"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/extraction"
	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

// Page is a watch page loaded in a browser tab.
type Page interface {
	// PlayerResponse returns the page's player response JSON.
	PlayerResponse() ([]byte, error)
	// Fetch requests url from inside the page and returns the response body.
	Fetch(url string) (string, error)
	Close()
}

// PageOpener loads watchURL in a fresh browser tab.
type PageOpener func(ctx context.Context, watchURL string, id identity.Identity) (Page, error)

// BrowserOptions configures the headless Chrome launcher.
type BrowserOptions struct {
	ChromePath string
	Headless   bool
	Timeout    time.Duration
	Cooldown   time.Duration
}

// Browser drives headless Chrome through the watch page and downloads the
// caption track from the page's own origin.
type Browser struct {
	identities Identities
	open       PageOpener
	timeout    time.Duration
	cooldown   time.Duration
}

// NewBrowser creates the strategy. A nil opener launches Chrome with chromedp.
func NewBrowser(identities Identities, opts BrowserOptions, open PageOpener) *Browser {
	if open == nil {
		open = chromeOpener(opts)
	}
	return &Browser{identities: identities, open: open, timeout: opts.Timeout, cooldown: opts.Cooldown}
}

// Name implements extraction.Strategy.
func (s *Browser) Name() string { return config.StrategyBrowser }

// Cooldown implements extraction.Cooldown.
func (s *Browser) Cooldown() time.Duration { return s.cooldown }

// Attempt implements extraction.Strategy.
func (s *Browser) Attempt(ctx context.Context, req extraction.AttemptRequest) (*extraction.Payload, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id := s.identities.Next()

	page, err := s.open(ctx, DefaultWatchBaseURL+"/watch?v="+req.VideoID+"&hl=en", id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.Transient(fmt.Errorf("open watch page: %w", err))
	}
	defer page.Close()

	raw, err := page.PlayerResponse()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.ParseFailure(err)
	}
	pr, err := parsePlayerResponse(raw)
	if err != nil {
		return nil, err
	}

	track, options, err := pr.selectTrack(req.VideoID, req)
	if err != nil {
		if extraction.KindOf(err) == extraction.KindRateLimited {
			s.identities.Retire(id.Cookie)
		}
		return nil, err
	}

	body, err := page.Fetch(withQuery(track.URL, "fmt", "json3"))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, extraction.ClassifyMessage(err)
	}
	if strings.TrimSpace(body) == "" {
		return nil, extraction.NoCaptions("in-page fetch returned an empty track for %s", req.VideoID)
	}

	metadata := pr.metadata(req.VideoID)
	metadata.AvailableLanguages = options

	return &extraction.Payload{
		Raw:                body,
		Format:             parser.FormatUnknown,
		Language:           track.LanguageCode,
		Metadata:           metadata,
		AvailableLanguages: options,
	}, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func chromeOpener(opts BrowserOptions) PageOpener {
	return func(ctx context.Context, watchURL string, id identity.Identity) (Page, error) {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.DisableGPU,
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("mute-audio", true),
			chromedp.Flag("autoplay-policy", "user-gesture-required"),
			chromedp.UserAgent(id.UserAgent),
		)
		if opts.ChromePath != "" {
			allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
		}
		if proxy := id.ProxyURL(); proxy != "" {
			allocOpts = append(allocOpts, chromedp.ProxyServer(proxy))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		cancel := func() {
			tabCancel()
			allocCancel()
		}

		headers := network.Headers{"Accept-Language": "en-US,en;q=0.9"}
		if id.Cookie != "" {
			headers["Cookie"] = id.Cookie
		}

		err := chromedp.Run(tabCtx,
			network.Enable(),
			network.SetExtraHTTPHeaders(headers),
			chromedp.Navigate(watchURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		return &chromePage{ctx: tabCtx, cancel: cancel}, nil
	}
}

func (p *chromePage) PlayerResponse() ([]byte, error) {
	var raw string
	err := chromedp.Run(p.ctx,
		chromedp.Evaluate(`JSON.stringify(window.ytInitialPlayerResponse || null)`, &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("read player response: %w", err)
	}
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("player response not present on page")
	}
	return []byte(raw), nil
}

func (p *chromePage) Fetch(url string) (string, error) {
	quoted, err := json.Marshal(url)
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(`fetch(%s, {credentials: "include"}).then(r => {
		if (!r.ok) { throw new Error("HTTP " + r.status); }
		return r.text();
	})`, quoted)

	var body string
	err = chromedp.Run(p.ctx,
		chromedp.Evaluate(script, &body, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("in-page fetch: %w", err)
	}
	return body, nil
}

func (p *chromePage) Close() {
	p.cancel()
}
