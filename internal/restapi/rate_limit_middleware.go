package restapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"tripsearch.onebusaway.org/internal/app"
	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/models"
)

const (
	anonymousRateKey   = "__no_key__"
	limiterIdleTimeout = 10 * time.Minute
	limiterSweepPeriod = 5 * time.Minute
)

// rateLimitClient pairs a limiter with the last time its key was seen, in
// Unix nanoseconds.
type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimitMiddleware applies a token bucket per API key. Idle buckets are
// swept periodically.
type RateLimitMiddleware struct {
	mu         sync.RWMutex
	limiters   map[string]*rateLimitClient
	rateLimit  rate.Limit
	burstSize  int
	exemptKeys map[string]bool
	clock      clock.Clock

	sweepTicker *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewRateLimitMiddleware allows requestsPerInterval requests per key in every
// interval, with the same burst. Zero blocks everything; a negative value
// disables limiting.
func NewRateLimitMiddleware(requestsPerInterval int, interval time.Duration, exemptKeys []string, c clock.Clock) *RateLimitMiddleware {
	if c == nil {
		c = clock.RealClock{}
	}

	var limit rate.Limit
	switch {
	case requestsPerInterval < 0:
		limit = rate.Inf
	case requestsPerInterval == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(requestsPerInterval))
	}

	exempt := make(map[string]bool, len(exemptKeys))
	for _, key := range exemptKeys {
		if key = strings.TrimSpace(key); key != "" {
			exempt[key] = true
		}
	}

	rl := &RateLimitMiddleware{
		limiters:    make(map[string]*rateLimitClient),
		rateLimit:   limit,
		burstSize:   max(requestsPerInterval, 0),
		exemptKeys:  exempt,
		clock:       c,
		sweepTicker: time.NewTicker(limiterSweepPeriod),
		stopChan:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := app.APIKey(r)
			if key == "" {
				key = anonymousRateKey
			}
			if rl.exemptKeys[key] || rl.getLimiter(key).Allow() {
				next.ServeHTTP(w, r)
				return
			}
			rl.sendRateLimitExceeded(w)
		})
	}
}

func (rl *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	client, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		client.lastSeen.Store(now)
		return client.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if client, ok := rl.limiters[key]; ok {
		client.lastSeen.Store(now)
		return client.limiter
	}
	client = &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	client.lastSeen.Store(now)
	rl.limiters[key] = client
	return client.limiter
}

func (rl *RateLimitMiddleware) retryAfterSeconds() int {
	switch rl.rateLimit {
	case 0:
		return int(time.Hour.Seconds())
	case rate.Inf:
		return 1
	}
	// one token's worth of time, tolerant of float error in rate.Every
	return max(1, int(math.Ceil(1/float64(rl.rateLimit)-1e-9)))
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	resp := models.NewErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", rl.clock)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// sweep drops limiters idle for longer than limiterIdleTimeout.
func (rl *RateLimitMiddleware) sweep() {
	cutoff := rl.clock.Now().Add(-limiterIdleTimeout).UnixNano()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, client := range rl.limiters {
		if client.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) sweepLoop() {
	for {
		select {
		case <-rl.sweepTicker.C:
			rl.sweep()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.sweepTicker.Stop()
	})
}

func (rl *RateLimitMiddleware) trackedKeys() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}
