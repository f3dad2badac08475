package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/pribylovaa/go-room-booking/internal/metrics"
	"github.com/pribylovaa/go-room-booking/internal/pkg/log"
	"github.com/pribylovaa/go-room-booking/internal/ratelimit"
	"github.com/pribylovaa/go-room-booking/internal/transport/http/apierrors"
)

// RateLimit ограничивает частоту запросов с одного IP token bucket-ом в Redis.
// nil-лимитер делает мидлвар no-op. Ошибка Redis запрос не блокирует.
func RateLimit(l *ratelimit.Limiter, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.Key("ip", clientIP(r))

			res, err := l.Allow(r.Context(), key)
			if err != nil {
				log.From(r.Context()).Warn("ratelimit_unavailable", slog.String("err", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))

			if !res.Allowed {
				m.RateLimited()
				w.Header().Set("Retry-After", res.RetryAfterSeconds())
				log.From(r.Context()).Info("rate_limited", slog.String("key", key))
				apierrors.WriteError(w, r, apierrors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
