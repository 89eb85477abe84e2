package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/models"
	"golang.org/x/time/rate"
)

const (
	sweepInterval = 5 * time.Minute
	idleTTL       = time.Hour
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	inFlight int
}

// RateLimiter throttles the scrape trigger per identity (API key fingerprint
// or client IP). A token bucket bounds how often an identity may start a
// scrape, and MaxInFlight bounds how many of its scrapes may hold a browser
// at once.
type RateLimiter struct {
	cfg config.RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewRateLimiter creates a RateLimiter. Idle identities are swept every
// five minutes until ctx is done.
func NewRateLimiter(ctx context.Context, cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
	go rl.sweep(ctx)
	return rl
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict(rl.now().Add(-idleTTL))
		}
	}
}

// evict drops identities unseen since cutoff with no scrape running.
func (rl *RateLimiter) evict(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for id, e := range rl.entries {
		if e.inFlight == 0 && e.lastSeen.Before(cutoff) {
			delete(rl.entries, id)
			n++
		}
	}
	return n
}

// admit reserves a slot for identity. On refusal it returns the message and
// how long the caller should wait before retrying.
func (rl *RateLimiter) admit(identity string) (ok bool, msg string, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, found := rl.entries[identity]
	if !found {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.entries[identity] = e
	}
	e.lastSeen = now

	if rl.cfg.MaxInFlight > 0 && e.inFlight >= rl.cfg.MaxInFlight {
		return false, "a scrape is already running for this caller", 0
	}

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, "rate limit exceeded, please slow down", 0
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, "rate limit exceeded, please slow down", d
	}

	e.inFlight++
	return true, "", 0
}

func (rl *RateLimiter) release(identity string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if e, ok := rl.entries[identity]; ok && e.inFlight > 0 {
		e.inFlight--
		e.lastSeen = rl.now()
	}
}

// Handler returns the gin middleware.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString(IdentityKey)
		if identity == "" {
			identity = "ip:" + c.ClientIP()
		}

		ok, msg, retryAfter := rl.admit(identity)
		if !ok {
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: msg,
				},
			})
			return
		}
		defer rl.release(identity)

		c.Next()
	}
}
