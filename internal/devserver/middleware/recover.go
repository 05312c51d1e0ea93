package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
)

var errPanic = apierrors.New(apierrors.KindServer, http.StatusInternalServerError, "internal", "internal error")

// Recover отвечает 500 вместо обрыва соединения. Причина и стек остаются в логе.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).Error("handler_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
					slog.String("stack", string(debug.Stack())),
				)
				apierrors.WriteError(w, r, errPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
