package middleware

import (
	"net/http"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
)

// Timeout ограничивает обработку запроса d по тому же правилу, что и клиентский
// transport.WithTimeout: чужой дедлайн не сокращается и не продлевается, d <= 0 - без таймаута.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel, ok := transport.Bound(r.Context(), d)
			defer cancel()

			if ok {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
