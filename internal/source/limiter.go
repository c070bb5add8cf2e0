package source

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate limits requests per host
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until a request to host is allowed
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.get(host).Wait(ctx)
}

// Allow reports whether a request to host may happen now
func (l *Limiter) Allow(host string) bool {
	return l.get(host).Allow()
}

// SetHostRate lowers the rate of host. A rate above the current one is
// ignored so a crawl delay can only slow a host down.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	lim := l.get(host)
	if rate.Limit(requestsPerSecond) >= lim.Limit() {
		return
	}
	lim.SetLimit(rate.Limit(requestsPerSecond))
	lim.SetBurst(burst)
}

func (l *Limiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = lim
	}
	return lim
}
