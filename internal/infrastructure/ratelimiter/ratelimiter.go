package ratelimiter

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hilthontt/encore/internal/infrastructure/configs"
	"golang.org/x/time/rate"
)

const defaultSourceKey = "X-RateLimit-Key"

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per source. Buckets idle for longer
// than the TTL are evicted.
type RateLimiter struct {
	limit           rate.Limit
	maxBurst        int
	ttl             time.Duration
	sourceHeaderKey string
	now             func() time.Time

	mu      sync.Mutex
	buckets map[string]*entry

	stop     chan struct{}
	stopOnce sync.Once
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

func OptionsFromConfig(cfg configs.RateLimiterConfig) Options {
	return Options{
		MaxRatePerSecond: cfg.MaxRatePerSecond,
		MaxBurst:         cfg.MaxBurst,
		CacheTTL:         cfg.CacheTTL,
		SourceHeaderKey:  cfg.SourceHeaderKey,
	}
}

func New(options Options) *RateLimiter {
	if options.CacheTTL == 0 {
		options.CacheTTL = 10 * time.Second
	}

	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}

	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	rl := &RateLimiter{
		limit:           rate.Limit(options.MaxRatePerSecond),
		maxBurst:        options.MaxBurst,
		ttl:             options.CacheTTL,
		sourceHeaderKey: options.SourceHeaderKey,
		now:             time.Now,
		buckets:         make(map[string]*entry),
		stop:            make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) bucket(sourceKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.buckets[sourceKey]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.maxBurst)}
		rl.buckets[sourceKey] = e
	}
	e.lastSeen = rl.now()
	return e.limiter
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	return rl.bucket(sourceKey).AllowN(rl.now(), 1)
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	tokens := rl.bucket(sourceKey).TokensAt(rl.now())
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

// GetSourceKey prefers the configured header, then the client IP.
func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		// X-Forwarded-For may carry a chain; the first hop is the client.
		return strings.TrimSpace(strings.Split(key, ",")[0])
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	cutoff := rl.now().Add(-rl.ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, e := range rl.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) Close() error {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
	return nil
}
