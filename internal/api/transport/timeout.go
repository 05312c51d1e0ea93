package transport

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// WithTimeout навешивает таймаут d на исходящий запрос, если у контекста ещё нет дедлайна.
//
// Контракт:
//  1. d <= 0 - не модифицирует запрос;
//  2. у ctx уже есть deadline - оставляет как есть;
//  3. иначе - запрос уходит с context.WithTimeout(ctx, d). Контекст отменяется
//     при закрытии тела ответа (или сразу, если ответа нет), поэтому таймаут
//     покрывает и чтение тела.
func WithTimeout(d time.Duration) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx, cancel, ok := Bound(r.Context(), d)
			if !ok {
				return next.RoundTrip(r)
			}

			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil || resp == nil || resp.Body == nil {
				cancel()
				return resp, err
			}

			resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

// Bound - общее правило дедлайна клиента и devserver: d > 0 навешивается, только если
// у ctx ещё нет дедлайна. ok == false - ctx возвращён как есть, cancel - no-op.
func Bound(ctx context.Context, d time.Duration) (_ context.Context, cancel context.CancelFunc, ok bool) {
	if d <= 0 {
		return ctx, func() {}, false
	}
	if _, has := ctx.Deadline(); has {
		return ctx, func() {}, false
	}

	ctx, cancel = context.WithTimeout(ctx, d)
	return ctx, cancel, true
}

type cancelBody struct {
	io.ReadCloser
	once   sync.Once
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.cancel)
	return err
}
