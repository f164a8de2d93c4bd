package service

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const defaultThrottleCacheSize = 4096

// Throttle rate-limits realtime submissions per remote address.
// Limiters live in an LRU so a flood of distinct addresses stays bounded.
type Throttle struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	clock    clockwork.Clock
}

// NewThrottle allows perSecond submissions per address with the given burst.
// A non-positive rate disables throttling.
func NewThrottle(perSecond float64, burst, cacheSize int, clock clockwork.Clock) (*Throttle, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cacheSize <= 0 {
		cacheSize = defaultThrottleCacheSize
	}
	if burst <= 0 {
		burst = 1
	}
	// [MEMORY_MANAGEMENT] bounded set of "hot" addresses
	cache, err := lru.New[string, *rate.Limiter](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Throttle{
		limiters: cache,
		limit:    rate.Limit(perSecond),
		burst:    burst,
		clock:    clock,
	}, nil
}

// Allow reports whether addr may submit now, consuming a token if so.
func (t *Throttle) Allow(addr string) bool {
	if t == nil || t.limit <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	limiter, ok := t.limiters.Get(addr)
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters.Add(addr, limiter)
	}
	return limiter.AllowN(t.clock.Now(), 1)
}

// Tracked returns the number of addresses with a live limiter.
func (t *Throttle) Tracked() int {
	return t.limiters.Len()
}
