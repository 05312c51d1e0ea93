package transport

import "net/http"

// WithMetadata добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте),
//   - Authorization: Bearer <token> (если есть в контексте),
//   - User-Agent (если передан параметром).
//
// Исходный *http.Request не меняется: заголовки пишутся в клон.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()

			rid := RequestID(ctx)
			tok := AuthToken(ctx)
			if rid == "" && tok == "" && userAgent == "" {
				return next.RoundTrip(r)
			}

			out := r.Clone(ctx)
			if rid != "" {
				out.Header.Set(HeaderRequestID, rid)
			}
			if tok != "" {
				out.Header.Set("Authorization", "Bearer "+tok)
			}
			if userAgent != "" {
				out.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(out)
		})
	}
}
