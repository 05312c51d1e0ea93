package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/evgeniyfimushkin/event-planner/pkg/log"
)

// Logging - логирование исходящих запросов.
// Поведение:
//   - берёт X-Request-Id из заголовков запроса (или генерирует новый и добавляет);
//   - прокладывает обогащённый логгер в контекст запроса (pkg/log);
//   - пишет одну финальную запись уровня Info: msg="http_client", status, dur.
//
// Безопасность: не логирует тело и заголовки (Authorization, Cookie).
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			rid := r.Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
				r = r.Clone(r.Context())
				r.Header.Set(HeaderRequestID, rid)
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(log.Into(r.Context(), l))

			resp, err := next.RoundTrip(r)

			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			if err != nil {
				l.Info("http_client",
					slog.Int("status", status),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return resp, err
			}

			l.Info("http_client",
				slog.Int("status", status),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
