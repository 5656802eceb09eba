package extraction

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the attempts made by a single strategy invocation.
type RetryPolicy struct {
	MaxAttempts   int
	RateLimitBase time.Duration
	RateLimitMax  time.Duration
	JitterMin     time.Duration
	JitterMax     time.Duration
}

// DefaultRetryPolicy is used when the orchestrator is built without one.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:   2,
	RateLimitBase: 2 * time.Second,
	RateLimitMax:  30 * time.Second,
	JitterMin:     250 * time.Millisecond,
	JitterMax:     time.Second,
}

// RateLimitDelay is the wait before the retry that follows failed attempt
// number attempt (zero based): RateLimitBase × 2^attempt, capped.
func (p RetryPolicy) RateLimitDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.RateLimitBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.RateLimitMax > 0 && d >= p.RateLimitMax {
			return p.RateLimitMax
		}
	}
	if p.RateLimitMax > 0 && d > p.RateLimitMax {
		return p.RateLimitMax
	}
	return d
}

// Jitter returns a uniformly random delay in [JitterMin, JitterMax].
func (p RetryPolicy) Jitter() time.Duration {
	if p.JitterMax <= p.JitterMin {
		return p.JitterMin
	}
	return p.JitterMin + rand.N(p.JitterMax-p.JitterMin+1)
}

// policyBackOff adapts RetryPolicy to backoff.BackOff. The operation records
// the kind of its last failure so the next delay can depend on it.
type policyBackOff struct {
	policy   RetryPolicy
	failed   int
	lastKind ErrorKind
}

func (b *policyBackOff) NextBackOff() time.Duration {
	if b.failed >= b.policy.MaxAttempts {
		return backoff.Stop
	}
	if b.lastKind == KindRateLimited {
		return b.policy.RateLimitDelay(b.failed - 1)
	}
	return b.policy.Jitter()
}

func (b *policyBackOff) Reset() {
	b.failed = 0
	b.lastKind = KindTransient
}

// RetryNotify is called before every wait with the error that caused it.
type RetryNotify func(err error, wait time.Duration, attempt int)

// Retry runs fn until it succeeds, fails with a non-retriable error, the
// policy's attempt budget is exhausted or ctx ends. It returns the number of
// attempts made and the last error.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error, notify RetryNotify) (int, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	b := &policyBackOff{policy: policy}
	attempts := 0

	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		attempts++
		err := fn(attempts)
		if err == nil {
			return nil
		}

		b.failed++
		b.lastKind = KindOf(err)
		if IsContextError(err) && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		if !b.lastKind.Retriable() {
			return backoff.Permanent(err)
		}
		return err
	}

	var onWait backoff.Notify
	if notify != nil {
		onWait = func(err error, wait time.Duration) {
			notify(err, wait, attempts)
		}
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), onWait)
	return attempts, err
}
