package api

import (
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"votetally/internal/metrics"
	"votetally/internal/platform/apperr"
	jwtpkg "votetally/internal/platform/jwt"
)

// AdminKeyHeader carries the shared admin secret.
const AdminKeyHeader = "X-Admin-Key"

var slogLogger = slog.Default()

func SetLogger(l *slog.Logger) {
	if l != nil {
		slogLogger = l
	}
}

// AdminAuth admits requests that present the admin key, or a session token
// issued for it. An empty key locks the admin surface entirely.
func AdminAuth(adminKey string, jm *jwtpkg.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				slogLogger.Warn("admin key not set, cannot authorize admin access", "path", r.URL.Path)
				errorResponse(w, apperr.Unauthorized("Unauthorized", nil))
				return
			}

			if key := r.Header.Get(AdminKeyHeader); key != "" {
				if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				slogLogger.Warn("unauthorized admin access attempt", "path", r.URL.Path, "remote", clientIP(r))
				errorResponse(w, apperr.Unauthorized("Unauthorized", nil))
				return
			}

			if token, ok := bearerToken(r); ok && jm != nil {
				claims, err := jm.Parse(token)
				if err == nil && claims.Scope == jwtpkg.ScopeAdmin {
					next.ServeHTTP(w, r)
					return
				}
				slogLogger.Warn("invalid admin session token", "path", r.URL.Path, "error", err)
				errorResponse(w, apperr.Unauthorized("Unauthorized", err))
				return
			}

			slogLogger.Warn("admin key not provided", "path", r.URL.Path)
			errorResponse(w, apperr.Unauthorized("Unauthorized", nil))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, "+AdminKeyHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitVotes limits each client address to r ballots per second with the given
// burst. Rejected requests get 429 and a Retry-After hint.
func RateLimitVotes(r rate.Limit, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	visitors := newVisitorLimiter(r, burst, 10*time.Minute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if wait, ok := visitors.reserve(clientIP(r)); !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				errorResponse(w, apperr.TooManyRequests("too many votes, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)

		status := rw.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		metrics.IncRequest(r.Method, route, status)

		slogLogger.Info("request",
			"method", r.Method,
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// visitorLimiter hands out one token bucket per client address. Idle buckets are
// swept at most once per ttl.
type visitorLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorLimiter(limit rate.Limit, burst int, ttl time.Duration) *visitorLimiter {
	return &visitorLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		burst:     burst,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// reserve takes a token for addr. When none is available it reports how long
// until the next one.
func (l *visitorLimiter) reserve(addr string) (time.Duration, bool) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) > l.ttl {
		for key, v := range l.visitors {
			if now.Sub(v.seen) > l.ttl {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}
	v, ok := l.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[addr] = v
	}
	v.seen = now
	l.mu.Unlock()

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return delay, false
	}
	return 0, true
}

func (l *visitorLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// clientIP relies on chimw.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
