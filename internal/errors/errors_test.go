package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func response(status int, body string, hdr map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range hdr {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestFromResponse_StatusMapping(t *testing.T) {
	tcs := []struct {
		name     string
		status   int
		wantKind Kind
		wantCode string
	}{
		{"unauth", http.StatusUnauthorized, KindAuthorization, "unauthenticated"},
		{"bad_request", http.StatusBadRequest, KindValidation, "invalid_argument"},
		{"forbidden", http.StatusForbidden, KindValidation, "permission_denied"},
		{"not_found", http.StatusNotFound, KindValidation, "not_found"},
		{"conflict", http.StatusConflict, KindValidation, "already_exists"},
		{"precondition", http.StatusPreconditionFailed, KindValidation, "failed_precondition"},
		{"too_large", http.StatusRequestEntityTooLarge, KindValidation, "too_large"},
		{"unprocessable", http.StatusUnprocessableEntity, KindValidation, "unprocessable"},
		{"rate_limited", http.StatusTooManyRequests, KindServer, "resource_exhausted"},
		{"unavailable", http.StatusServiceUnavailable, KindServer, "unavailable"},
		{"internal", http.StatusInternalServerError, KindServer, "internal"},
		{"teapot", http.StatusTeapot, KindServer, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := FromResponse(response(tc.status, "", nil))

			var e *Error
			require.True(t, stderrors.As(err, &e))
			require.Equal(t, tc.wantKind, e.Kind)
			require.Equal(t, tc.status, e.Status)
			require.Equal(t, tc.wantCode, e.Code)
			require.NotEmpty(t, e.Message)
		})
	}
}

func TestFromResponse_Success_ReturnsNil(t *testing.T) {
	require.NoError(t, FromResponse(response(http.StatusOK, "{}", nil)))
	require.NoError(t, FromResponse(response(http.StatusNoContent, "", nil)))
}

func TestFromResponse_DecodesEnvelope(t *testing.T) {
	body := `{"error":{"code":"token_expired","message":"access token expired","request_id":"rid-1"}}`
	err := FromResponse(response(http.StatusUnauthorized, body, nil))

	var e *Error
	require.True(t, stderrors.As(err, &e))
	require.Equal(t, "token_expired", e.Code)
	require.Equal(t, "access token expired", e.Message)
	require.Equal(t, "rid-1", e.RequestID)
	require.ErrorIs(t, err, ErrAuthorization)
}

func TestFromResponse_PlainTextBody(t *testing.T) {
	err := FromResponse(response(http.StatusConflict, "user already exists\n", map[string]string{"X-Request-Id": "abc"}))

	var e *Error
	require.True(t, stderrors.As(err, &e))
	require.Equal(t, KindValidation, e.Kind)
	require.Equal(t, "already_exists", e.Code)
	require.Equal(t, "user already exists", e.Message)
	require.Equal(t, "abc", e.RequestID)
}

func TestFromTransport(t *testing.T) {
	require.NoError(t, FromTransport(nil))

	err := FromTransport(fmt.Errorf("dial: %w", context.DeadlineExceeded))
	require.Equal(t, KindTransport, KindOf(err))
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, IsContext(err))

	already := New(KindValidation, http.StatusBadRequest, "bad", "bad")
	require.Same(t, already, FromTransport(already))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindTransport, KindOf(stderrors.New("boom")))
	require.Equal(t, KindAuthorization, KindOf(fmt.Errorf("wrap: %w", New(KindAuthorization, 401, "", ""))))
	require.True(t, IsAuthorization(New(KindAuthorization, 401, "", "")))
	require.False(t, IsAuthorization(New(KindRefresh, 401, "", "")))
}

func TestWithKind_CopiesAndReclassifies(t *testing.T) {
	orig := New(KindAuthorization, http.StatusUnauthorized, "unauthenticated", "invalid refresh token")
	got := WithKind(orig, KindRefresh)

	require.ErrorIs(t, got, ErrRefresh)
	require.NotErrorIs(t, got, ErrAuthorization)
	require.Equal(t, KindAuthorization, orig.Kind)

	wrapped := WithKind(stderrors.New("x"), KindServer)
	require.Equal(t, KindServer, KindOf(wrapped))
	require.NoError(t, WithKind(nil, KindServer))
}

func TestError_MessageFormat(t *testing.T) {
	e := &Error{Kind: KindValidation, Status: 409, Code: "already_exists", Message: "taken", RequestID: "r1"}
	require.Equal(t, "validation: status 409: already_exists: taken (request_id=r1)", e.Error())

	tr := &Error{Kind: KindTransport, Err: stderrors.New("connection refused")}
	require.Equal(t, "transport: connection refused", tr.Error())
}

func TestToHTTP(t *testing.T) {
	status, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "internal", resp.Error.Code)

	status, resp = ToHTTP(stderrors.New("secret detail"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "internal error", resp.Error.Message)

	status, resp = ToHTTP(New(KindValidation, http.StatusConflict, "", ""))
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "already_exists", resp.Error.Code)

	status, resp = ToHTTP(&Error{Kind: KindAuthorization, Message: "token expired"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", resp.Error.Code)
	require.Equal(t, "token expired", resp.Error.Message)
}

func TestWriteError_RoundTripsThroughFromResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()

	WriteError(rec, req, New(KindAuthorization, http.StatusUnauthorized, "token_expired", "expired"))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	err := FromResponse(rec.Result())
	var e *Error
	require.True(t, stderrors.As(err, &e))
	require.Equal(t, KindAuthorization, e.Kind)
	require.Equal(t, "token_expired", e.Code)
	require.Equal(t, "req-42", e.RequestID)
}
