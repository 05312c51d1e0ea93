package transport

import (
	"net/http"
	"time"
)

// Observer получает итог каждого исходящего запроса. status == 0 - ответа нет.
type Observer interface {
	ObserveHTTP(method string, status int, dur time.Duration)
}

// WithMetrics сообщает obs о каждом запросе. obs == nil - middleware прозрачен.
func WithMetrics(obs Observer) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if obs == nil {
			return next
		}

		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			status := 0
			if err == nil && resp != nil {
				status = resp.StatusCode
			}
			obs.ObserveHTTP(r.Method, status, time.Since(start))

			return resp, err
		})
	}
}
