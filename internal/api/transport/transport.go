// transport - middleware для исходящих HTTP-запросов клиента (http.RoundTripper).
//
// Цепочка по умолчанию: metadata -> timeout -> metrics -> logging -> http.Transport.
// Значения запроса (request id, access-токен) передаются через context.Context,
// а не через поля клиента: один *http.Client обслуживает все вызовы.
package transport

import (
	"context"
	"net/http"
)

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
	CtxAuthToken CtxKey = "auth_token"
)

// HeaderRequestID - заголовок сквозного id запроса.
const HeaderRequestID = "X-Request-Id"

// Middleware оборачивает RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc - адаптер функции к http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain строит цепочку поверх base. Первый middleware - внешний.
// base == nil означает http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			rt = mws[i](rt)
		}
	}

	return rt
}

// WithAuthToken кладёт access-токен в контекст запроса.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CtxAuthToken, token)
}

// AuthToken достаёт access-токен из контекста.
func AuthToken(ctx context.Context) string {
	tok, _ := ctx.Value(CtxAuthToken).(string)
	return tok
}

// WithRequestID кладёт request id в контекст запроса.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, CtxRequestID, rid)
}

// RequestID достаёт request id из контекста.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(CtxRequestID).(string)
	return rid
}
