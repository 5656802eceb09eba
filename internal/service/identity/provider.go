// Package identity supplies the request identity used for outbound calls to
// the video platform: browser-like headers, a rotating proxy and an optional
// session cookie.
package identity

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Provider hands out request identities. It is safe for concurrent use.
type Provider struct {
	clients []*http.Client
	proxies []*url.URL
	cursor  atomic.Uint64
	cookies *CookiePool
}

// New creates a Provider. Each proxy gets its own transport so connections
// are pooled per exit address; with no proxies requests go out directly.
func New(proxies, cookies []string, timeout time.Duration) (*Provider, error) {
	p := &Provider{cookies: NewCookiePool(cookies)}

	for _, raw := range proxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", raw)
		}
		p.proxies = append(p.proxies, u)
		p.clients = append(p.clients, newClient(http.ProxyURL(u), timeout))
	}

	if len(p.clients) == 0 {
		p.clients = append(p.clients, newClient(http.ProxyFromEnvironment, timeout))
	}

	return p, nil
}

func newClient(proxy func(*http.Request) (*url.URL, error), timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Identity is the set of values applied to one outbound request.
type Identity struct {
	UserAgent string
	Proxy     *url.URL
	Cookie    string
	Client    *http.Client
}

// Next rotates to the next proxy and cookie and draws a fresh user agent.
func (p *Provider) Next() Identity {
	i := p.cursor.Add(1) - 1
	idx := int(i % uint64(len(p.clients)))

	id := Identity{
		UserAgent: stealth.RandomUserAgent(),
		Client:    p.clients[idx],
	}
	if len(p.proxies) > 0 {
		id.Proxy = p.proxies[idx]
	}
	if cookie, ok := p.cookies.Pick(); ok {
		id.Cookie = cookie
	}
	return id
}

// Apply sets Chrome-like headers, the user agent and the cookie on req.
func (id Identity) Apply(req *http.Request) {
	for k, v := range stealth.ChromeHeaders() {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", id.UserAgent)
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if id.Cookie != "" {
		req.Header.Set("Cookie", id.Cookie)
	}
}

// ProxyURL returns the proxy as a string, or "" for direct connections.
func (id Identity) ProxyURL() string {
	if id.Proxy == nil {
		return ""
	}
	return id.Proxy.String()
}

// Cookies exposes the cookie pool so callers can retire flagged cookies.
func (p *Provider) Cookies() *CookiePool {
	return p.cookies
}

// ProxyCount returns the number of configured proxies.
func (p *Provider) ProxyCount() int {
	return len(p.proxies)
}

// Retire drops a cookie the platform has flagged so it is not handed out again.
func (p *Provider) Retire(cookie string) {
	if cookie == "" {
		return
	}
	p.cookies.Remove(cookie)
}
