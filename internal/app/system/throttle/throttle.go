// Package throttle applies fixed-window rate limits from store/ratelimit to
// HTTP requests and reports them with the standard RateLimit-* headers.
package throttle

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/store/ratelimit"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/network"
	"go.uber.org/zap"
)

// Counter is the part of ratelimit.Store a Limiter needs.
type Counter interface {
	Hit(ctx context.Context, key string, p ratelimit.Policy) (ratelimit.Decision, error)
}

// Limiter limits one scope (e.g. "contact") by client IP.
type Limiter struct {
	counter Counter
	scope   string
	policy  ratelimit.Policy
	errMsg  string
	message string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Limiter. errMsg and message fill the 429 response body.
func New(counter Counter, scope string, policy ratelimit.Policy, errMsg, message string, logger *zap.Logger) *Limiter {
	return &Limiter{
		counter: counter,
		scope:   scope,
		policy:  policy,
		errMsg:  errMsg,
		message: message,
		logger:  logger,
		now:     time.Now,
	}
}

// Middleware records a hit for the client IP on every request and answers
// 429 once the window's budget is spent. Counter errors let the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := network.GetClientIP(r)
		d, err := l.counter.Hit(r.Context(), ratelimit.Key(l.scope, ip), l.policy)
		if err != nil {
			l.logger.Warn("rate limit check failed; allowing request",
				zap.String("scope", l.scope),
				zap.String("ip", ip),
				zap.Error(err))
		}

		now := l.now()
		WriteHeaders(w, d, now)
		if !d.Allowed {
			l.logger.Info("rate limited",
				zap.String("scope", l.scope),
				zap.String("ip", ip))
			TooManyRequests(w, d, now, l.errMsg, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteHeaders sets RateLimit-Limit, RateLimit-Remaining and RateLimit-Reset
// (seconds until the window resets).
func WriteHeaders(w http.ResponseWriter, d ratelimit.Decision, now time.Time) {
	h := w.Header()
	h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("RateLimit-Reset", strconv.Itoa(seconds(d.RetryAfter(now))))
}

// TooManyRequests writes a 429 with Retry-After.
func TooManyRequests(w http.ResponseWriter, d ratelimit.Decision, now time.Time, errMsg, message string) {
	w.Header().Set("Retry-After", strconv.Itoa(seconds(d.RetryAfter(now))))
	jsonutil.Fail(w, http.StatusTooManyRequests, errMsg, message)
}

// Describe renders a window as "5 minutes", "1 hour", "30 seconds".
func Describe(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(seconds(d), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
