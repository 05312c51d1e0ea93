package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
)

// RequestID берёт X-Request-Id клиента (его ставит transport.Logging) либо выдаёт UUID.
// Id попадает в ответ, в заголовок запроса (оттуда его читает WriteError) и в контекст.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(transport.HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(transport.HeaderRequestID, id)
			}
			w.Header().Set(transport.HeaderRequestID, id)

			next.ServeHTTP(w, r.WithContext(transport.WithRequestID(r.Context(), id)))
		})
	}
}
