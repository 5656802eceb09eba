package identity

import (
	"strings"
	"sync"
	"sync/atomic"
)

// CookiePool rotates Cookie header values across requests. Reads run
// concurrently; cookies that trip bot detection can be removed at any time.
type CookiePool struct {
	mu      sync.RWMutex
	cookies []string
	cursor  atomic.Uint64
}

// NewCookiePool creates a pool from Cookie header values. Blank entries are
// dropped.
func NewCookiePool(cookies []string) *CookiePool {
	p := &CookiePool{}
	for _, c := range cookies {
		if c = strings.TrimSpace(c); c != "" {
			p.cookies = append(p.cookies, c)
		}
	}
	return p
}

// Pick returns the next cookie in round-robin order.
func (p *CookiePool) Pick() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.cookies) == 0 {
		return "", false
	}
	i := p.cursor.Add(1) - 1
	return p.cookies[i%uint64(len(p.cookies))], true
}

// Remove drops cookie from the pool. It reports whether it was present.
func (p *CookiePool) Remove(cookie string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, c := range p.cookies {
		if c == cookie {
			p.cookies = append(p.cookies[:i:i], p.cookies[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of cookies left.
func (p *CookiePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cookies)
}
