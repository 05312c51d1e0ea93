package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
)

const maxBody = 1 << 20

// errBadRequest - тело или параметры запроса некорректны. HTTP 400.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error { return fmt.Errorf("%w: %s", errBadRequest, msg) }

// writeErr маппит ошибки сервера в HTTP и пишет унифицированный ответ.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var e *apierrors.Error

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		e = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
	case errors.Is(err, ErrMissingToken):
		e = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "unauthenticated", "token is missing")
	case errors.Is(err, ErrTokenExpired):
		e = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "token_expired", "token expired")
	case errors.Is(err, ErrTokenReused):
		e = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "token_reused", "refresh token reused, session revoked")
	case errors.Is(err, ErrInvalidToken):
		e = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "unauthenticated", "invalid token")
	case errors.Is(err, ErrAlreadyExists):
		e = apierrors.New(apierrors.KindValidation, http.StatusConflict, "already_exists", "already exists")
	case errors.Is(err, ErrNotFound):
		e = apierrors.New(apierrors.KindValidation, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, ErrEventFull):
		e = apierrors.New(apierrors.KindValidation, http.StatusPreconditionFailed, "failed_precondition", "event is full")
	case errors.Is(err, errBadRequest):
		e = apierrors.New(apierrors.KindValidation, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		logctx.From(r.Context()).Error("handler_failed",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		apierrors.WriteError(w, r, err)
		return
	}

	apierrors.WriteError(w, r, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid json body")
	}
	return nil
}

type ctxKey struct{}

// requireUser пропускает запрос только с действующим access-токеном.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := s.tokens.validateAccess(accessToken(r))
		if err != nil {
			s.unauthorized.Add(1)
			logctx.From(r.Context()).Debug("access_rejected", slog.String("err", err.Error()))
			writeErr(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) uint {
	id, _ := ctx.Value(ctxKey{}).(uint)
	return id
}
