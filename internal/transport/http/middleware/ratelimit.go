package middleware

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"leavelite/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*rateLimiter)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per key. Buckets idle for longer than idleTTL are dropped.
type rateLimiter struct {
	mu       sync.Mutex
	limit    int
	every    rate.Limit
	keyFn    RateLimitKeyFunc
	byActor  bool
	trusted  []netip.Prefix
	visitors map[string]*visitor
	idleTTL  time.Duration
	lastGC   time.Time
	logger   *zap.Logger
}

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(rl *rateLimiter) {
		if fn != nil {
			rl.keyFn = fn
		}
	}
}

// WithTrustedProxies makes X-Forwarded-For count only when the direct peer is one of prefixes.
// Without it the peer address is always the key.
func WithTrustedProxies(prefixes []netip.Prefix) RateLimitOption {
	return func(rl *rateLimiter) {
		rl.trusted = prefixes
	}
}

func WithLogger(logger *zap.Logger) RateLimitOption {
	return func(rl *rateLimiter) {
		if logger != nil {
			rl.logger = logger.Named("ratelimit")
		}
	}
}

// RateLimit allows limit requests per window per key, refilling continuously.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, true)
	for _, opt := range opts {
		opt(rl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter budget to credential endpoints (keyed by IP)
// and to leave resolution (keyed by actor). Other routes pass through.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	authByIP := newRateLimiter(max(baseLimit/4, 1), window, false)
	byActor := newRateLimiter(max(baseLimit/2, 1), window, true)
	for _, opt := range opts {
		opt(authByIP)
		opt(byActor)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !authByIP.enforce(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.enforce(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *rateLimiter) key(r *http.Request) string {
	if rl.keyFn != nil {
		if key := rl.keyFn(r); key != "" {
			return key
		}
	}
	if rl.byActor {
		if user, ok := GetUser(r.Context()); ok {
			return "user:" + user.UserID
		}
	}
	return rl.clientIP(r)
}

// clientIP is the direct peer, unless the peer is a trusted proxy. Then X-Forwarded-For is read
// right to left and the first hop outside the trusted set wins.
func (rl *rateLimiter) clientIP(r *http.Request) string {
	peer := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(peer); err == nil && host != "" {
		peer = host
	}
	if !rl.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !rl.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func (rl *rateLimiter) isTrusted(ip string) bool {
	if len(rl.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range rl.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func newRateLimiter(limit int, window time.Duration, byActor bool) *rateLimiter {
	every := rate.Inf
	if limit > 0 && window > 0 {
		every = rate.Every(window / time.Duration(limit))
	}
	return &rateLimiter{
		limit:    limit,
		every:    every,
		byActor:  byActor,
		visitors: map[string]*visitor{},
		idleTTL:  max(window*2, time.Minute),
		logger:   zap.NewNop(),
	}
}

func (rl *rateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastGC) > rl.idleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}

	key := rl.key(r)
	now := time.Now()
	limiter := rl.limiterFor(key, now)

	allowed := limiter.AllowN(now, 1)
	remaining := int(math.Floor(limiter.TokensAt(now)))

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

	if !allowed {
		retryAfter := int(math.Ceil(time.Duration(float64(time.Second) / float64(rl.every)).Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
		rl.logger.Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int("limit", rl.limit),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := strings.TrimPrefix(strings.TrimSpace(r.URL.Path), "/api/v1")
	switch path {
	case "/auth/login", "/auth/register":
		return sensitiveScopeAuth
	case "/leave/requests", "/documents":
		return sensitiveScopeActor
	}
	if strings.HasPrefix(path, "/leave/requests/") {
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}
