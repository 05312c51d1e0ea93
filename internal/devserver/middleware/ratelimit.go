package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
)

// KeyFunc выбирает ключ ограничения для запроса.
type KeyFunc func(*http.Request) string

// ClientIP - ключ по адресу клиента: X-Forwarded-For, X-Real-IP, затем RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type limiters struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	limit rate.Limit
	burst int
}

func (l *limiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.byKey[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.byKey[key] = lim
	}
	return lim
}

// RateLimit пропускает не больше perMinute запросов в минуту на ключ (с запасом burst).
// Сверх лимита - 429 с Retry-After. perMinute <= 0 делает мидлвар no-op.
func RateLimit(perMinute, burst int, key KeyFunc) Middleware {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		if key == nil {
			key = ClientIP
		}

		ls := &limiters{
			byKey: make(map[string]*rate.Limiter),
			limit: rate.Every(time.Minute / time.Duration(perMinute)),
			burst: burst,
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			lim := ls.get(k)

			if !lim.Allow() {
				res := lim.Reserve()
				delay := res.Delay()
				res.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logctx.From(r.Context()).Warn("rate_limit_exceeded",
					slog.String("key", k),
					slog.String("path", r.URL.Path),
					slog.Int("retry_after", retryAfter),
				)

				apierrors.WriteError(w, r, apierrors.New(apierrors.KindServer, http.StatusTooManyRequests,
					"resource_exhausted", "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
