package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
)

// Observer получает статус и длительность каждого запроса (метрики).
type Observer interface {
	ObserveRequest(method, route string, status int, dur time.Duration)
}

// Logging кладёт request-scoped логгер в контекст и пишет одну запись "http" на запрос.
// obs может быть nil.
func Logging(l *slog.Logger, obs Observer) Middleware {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := transport.RequestID(r.Context()); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			ctx := logctx.Into(r.Context(), reqLogger)
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			if obs != nil {
				obs.ObserveRequest(r.Method, r.URL.Path, sw.code(), dur)
			}

			logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.code()),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			)
		})
	}
}
