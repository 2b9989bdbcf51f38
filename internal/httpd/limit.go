package httpd

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// ipLimiter tracks one token bucket per client IP. A nil limiter allows
// everything.
type ipLimiter struct {
	mu      sync.Mutex
	perSec  rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func newIPLimiter(perSec int) *ipLimiter {
	if perSec <= 0 {
		return nil
	}
	return &ipLimiter{
		perSec:  rate.Limit(perSec),
		burst:   perSec,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the client behind remoteAddr may poke right now.
func (l *ipLimiter) Allow(remoteAddr string) bool {
	if l == nil {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// Crude bound on memory: reset everyone rather than track evictions.
	if len(l.buckets) > 8192 {
		l.buckets = make(map[string]*rate.Limiter)
	}
	b, ok := l.buckets[host]
	if !ok {
		b = rate.NewLimiter(l.perSec, l.burst)
		l.buckets[host] = b
	}
	return b.Allow()
}
