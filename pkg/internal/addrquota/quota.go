// Package addrquota rate limits events per IP address block.
package addrquota

import (
	"net"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/time/rate"
)

// Quota is an IP-based rate limiter.
// Addresses that only differ in the low-order byte share a block
// and together get eventsPerSecond.
// Blocks are kept in an LRU cache of size maxEntries.
type Quota struct {
	eps   rate.Limit
	burst int

	mu    sync.Mutex // protects cache
	cache *lru.Cache
}

// NewQuota returns a new Quota.
func NewQuota(eventsPerSecond float32, burst, maxEntries int) *Quota {
	return &Quota{
		eps:   rate.Limit(eventsPerSecond),
		burst: burst,
		cache: lru.New(maxEntries),
	}
}

// Blocked reports whether the block of addr exceeded its quota
// and consumes one event otherwise.
// Addresses without an IP are never blocked.
func (q *Quota) Blocked(addr net.Addr) bool {
	key := blockKey(addr)
	if key == "" {
		return false
	}
	q.mu.Lock()
	var limiter *rate.Limiter
	if v, ok := q.cache.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(q.eps, q.burst)
		q.cache.Add(key, limiter)
	}
	q.mu.Unlock()
	return !limiter.Allow()
}

func blockKey(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	ip[len(ip)-1] = 0
	return ip.String()
}
