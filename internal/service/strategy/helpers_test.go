package strategy

import (
	"net/http"
	"sync"

	"github.com/ad-tracker/youtube-caption-api-go/internal/service/identity"
)

type fakeIdentities struct {
	mu      sync.Mutex
	cookie  string
	retired []string
}

func (f *fakeIdentities) Next() identity.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return identity.Identity{UserAgent: "test-agent/1.0", Cookie: f.cookie, Client: http.DefaultClient}
}

func (f *fakeIdentities) Retire(cookie string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retired = append(f.retired, cookie)
}

const json3Body = `{"wireMagic":"pb3","events":[{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"hello"}]},{"tStartMs":1500,"dDurationMs":2000,"segs":[{"utf8":"world"}]}]}`

const timedTextBody = `<?xml version="1.0" encoding="utf-8" ?><transcript><text start="0" dur="1.5">hello</text><text start="1.5" dur="2">world</text></transcript>`
