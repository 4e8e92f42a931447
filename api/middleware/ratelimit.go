package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// getRateLimitForEndpoint determines which rate limit to apply based on config
func (mw *Middleware) getRateLimitForEndpoint(path, method string) (int, time.Duration) {
	// Submissions and transitions write to the store
	if method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions &&
		(strings.HasPrefix(path, "/orders") || strings.HasPrefix(path, "/pos")) {
		return mw.cfg.RateLimit.WriteLimit, mw.cfg.RateLimit.WriteWindow
	}

	// Default limit for everything else
	return mw.cfg.RateLimit.GeneralLimit, mw.cfg.RateLimit.GeneralWindow
}

// getClientIP prefers the first forwarded address. chi's RealIP usually has
// already moved it into RemoteAddr.
func (mw *Middleware) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// generateRateLimitKey creates a unique cache key for rate limiting
func (mw *Middleware) generateRateLimitKey(ip, method, endpoint string) string {
	normalizedEndpoint := strings.TrimSuffix(endpoint, "/")

	// Group per-order routes, e.g. /orders/<uuid>/advance -> /orders/:id/advance
	parts := strings.Split(normalizedEndpoint, "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = ":id"
		}
	}
	normalizedEndpoint = strings.Join(parts, "/")

	return fmt.Sprintf("%s:%s:%s", ip, method, normalizedEndpoint)
}

func skipRateLimit(path string) bool {
	return path == "/" || path == "/metrics" || strings.HasPrefix(path, "/health") || strings.HasSuffix(path, "/stream")
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int, window time.Duration) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))
}

func (mw *Middleware) rejectRateLimited(w http.ResponseWriter, r *http.Request, clientIP string, limit int, window time.Duration) {
	mw.logger.Warn("Rate limit exceeded",
		gecho.Field("ip", clientIP),
		gecho.Field("endpoint", r.URL.Path),
		gecho.Field("limit", limit),
	)

	retryAfter := max(1, int(window.Seconds()))
	setRateLimitHeaders(w, limit, 0, window)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	gecho.TooManyRequests(w,
		gecho.WithMessage("Rate limit exceeded. Please try again later."),
		gecho.WithData(map[string]any{
			"limit":       limit,
			"window":      window.String(),
			"retry_after": retryAfter,
		}),
		gecho.Send(),
	)
}

// RateLimitMiddleware implements sliding window rate limiting, failing open
// when the cache is unavailable
func (mw *Middleware) RateLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mw.cfg.RateLimit.Enabled || mw.cacheService == nil || skipRateLimit(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := mw.getClientIP(r)
			limit, window := mw.getRateLimitForEndpoint(r.URL.Path, r.Method)
			key := mw.generateRateLimitKey(clientIP, r.Method, r.URL.Path)

			allowed, count, err := mw.cacheService.AllowRequest(r.Context(), key, limit, window)
			if err != nil {
				mw.logger.Warn("Rate limit cache error, allowing request",
					gecho.Field("error", err),
					gecho.Field("ip", clientIP),
					gecho.Field("endpoint", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				mw.rejectRateLimited(w, r, clientIP, limit, window)
				return
			}

			remaining := max(0, limit-count)
			setRateLimitHeaders(w, limit, remaining, window)

			// Log if getting close to limit (80% threshold)
			if count > int(float64(limit)*0.8) {
				mw.logger.Debug("Rate limit warning",
					gecho.Field("ip", clientIP),
					gecho.Field("endpoint", r.URL.Path),
					gecho.Field("count", count),
					gecho.Field("limit", limit),
				)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// StrictRateLimitMiddleware fails closed on cache errors. It guards the
// manager PIN against guessing.
func (mw *Middleware) StrictRateLimitMiddleware(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mw.cacheService == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := mw.getClientIP(r)
			key := "strict:" + mw.generateRateLimitKey(clientIP, r.Method, r.URL.Path)

			allowed, count, err := mw.cacheService.AllowRequest(r.Context(), key, limit, window)
			if err != nil {
				mw.logger.Error("Rate limit cache error, blocking request",
					gecho.Field("error", err),
					gecho.Field("ip", clientIP),
					gecho.Field("endpoint", r.URL.Path),
				)

				gecho.ServiceUnavailable(w,
					gecho.WithMessage("Service temporarily unavailable"),
					gecho.Send(),
				)
				return
			}

			if !allowed {
				mw.rejectRateLimited(w, r, clientIP, limit, window)
				return
			}

			setRateLimitHeaders(w, limit, max(0, limit-count), window)
			next.ServeHTTP(w, r)
		})
	}
}
