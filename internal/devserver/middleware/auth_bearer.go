package middleware

import (
	"net/http"
	"strings"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// AuthBearer извлекает access-токен и кладёт "сырой" токен в контекст (transport.CtxAuthToken).
// Источники: Authorization: Bearer, затем cookie access_token. Проверку токена делает обработчик.
func AuthBearer() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearer(r); token != "" {
				r = r.WithContext(transport.WithAuthToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, prefix) && len(auth) > len(prefix) {
		if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
			return token
		}
	}

	if ck, err := r.Cookie(models.EntryAccessToken); err == nil {
		return strings.TrimSpace(ck.Value)
	}

	return ""
}
