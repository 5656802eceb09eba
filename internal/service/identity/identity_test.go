package identity

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookiePool(t *testing.T) {
	pool := NewCookiePool([]string{"a=1", "  ", "b=2", "c=3"})
	require.Equal(t, 3, pool.Len())

	var picked []string
	for i := 0; i < 4; i++ {
		c, ok := pool.Pick()
		require.True(t, ok)
		picked = append(picked, c)
	}
	assert.Equal(t, []string{"a=1", "b=2", "c=3", "a=1"}, picked)

	assert.True(t, pool.Remove("b=2"))
	assert.False(t, pool.Remove("b=2"))
	assert.Equal(t, 2, pool.Len())

	assert.True(t, pool.Remove("a=1"))
	assert.True(t, pool.Remove("c=3"))
	_, ok := pool.Pick()
	assert.False(t, ok)
}

func TestCookiePool_ConcurrentAccess(t *testing.T) {
	cookies := make([]string, 50)
	for i := range cookies {
		cookies[i] = string(rune('a'+i%26)) + "=" + string(rune('0'+i%10))
	}
	pool := NewCookiePool(cookies)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				pool.Pick()
			}
		}()
		go func(i int) {
			defer wg.Done()
			pool.Remove(cookies[i])
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, pool.Len(), 50)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := New([]string{"://bad"}, nil, time.Second)
	assert.Error(t, err)
}

func TestProvider_RotatesProxies(t *testing.T) {
	p, err := New([]string{"http://proxy-a:8080", "", "socks5://proxy-b:1080"}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ProxyCount())

	first := p.Next()
	second := p.Next()
	third := p.Next()

	assert.Equal(t, "http://proxy-a:8080", first.ProxyURL())
	assert.Equal(t, "socks5://proxy-b:1080", second.ProxyURL())
	assert.Equal(t, "http://proxy-a:8080", third.ProxyURL())
	assert.Same(t, first.Client, third.Client)
	assert.NotSame(t, first.Client, second.Client)
}

func TestProvider_DirectConnection(t *testing.T) {
	p, err := New(nil, []string{"SID=abc"}, time.Second)
	require.NoError(t, err)

	id := p.Next()
	assert.Empty(t, id.ProxyURL())
	assert.NotNil(t, id.Client)
	assert.NotEmpty(t, id.UserAgent)
	assert.Equal(t, "SID=abc", id.Cookie)
}

func TestIdentity_Apply(t *testing.T) {
	id := Identity{UserAgent: "test-agent/1.0", Cookie: "SID=abc"}

	req := httptest.NewRequest("GET", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", nil)
	id.Apply(req)

	assert.Equal(t, "test-agent/1.0", req.Header.Get("User-Agent"))
	assert.Equal(t, "SID=abc", req.Header.Get("Cookie"))
	assert.NotEmpty(t, req.Header.Get("Accept-Language"))
}

func TestProvider_Retire(t *testing.T) {
	p, err := New(nil, []string{"SID=bad", "SID=good"}, time.Second)
	require.NoError(t, err)

	p.Retire("SID=bad")
	p.Retire("")

	for i := 0; i < 3; i++ {
		assert.Equal(t, "SID=good", p.Next().Cookie)
	}
	assert.Equal(t, 1, p.Cookies().Len())
}
