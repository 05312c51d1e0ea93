package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/pkg/log"
)

type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// recorder - конечный RoundTripper, запоминает последний запрос.
type recorder struct {
	got    *http.Request
	status int
	err    error
}

func (rc *recorder) RoundTrip(r *http.Request) (*http.Response, error) {
	rc.got = r
	if rc.err != nil {
		return nil, rc.err
	}
	status := rc.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("ok")), Request: r}, nil
}

func newReq(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.local/api/v1/events?x=1", nil)
	require.NoError(t, err)
	return r
}

func TestWithMetadata_AppendsHeaders(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(context.Background(), "rid-123")
	ctx = WithAuthToken(ctx, "token-xyz")

	rc := &recorder{}
	rt := Chain(rc, WithMetadata("meetings-cli"))

	orig := newReq(t, ctx)
	_, err := rt.RoundTrip(orig)
	require.NoError(t, err)

	require.Equal(t, "rid-123", rc.got.Header.Get("X-Request-Id"))
	require.Equal(t, "Bearer token-xyz", rc.got.Header.Get("Authorization"))
	require.Equal(t, "meetings-cli", rc.got.Header.Get("User-Agent"))

	// Исходный запрос не изменён.
	require.Empty(t, orig.Header.Get("Authorization"))
}

func TestWithMetadata_SkipEmptyValues(t *testing.T) {
	t.Parallel()

	rc := &recorder{}
	_, err := Chain(rc, WithMetadata("")).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	require.Empty(t, rc.got.Header.Get("X-Request-Id"))
	require.Empty(t, rc.got.Header.Get("Authorization"))
	require.Empty(t, rc.got.Header.Get("User-Agent"))
}

func TestWithTimeout_SetsDeadline_AndSeesDeadlineExceeded(t *testing.T) {
	t.Parallel()

	const d = 40 * time.Millisecond
	slow := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	start := time.Now()
	_, err := Chain(slow, WithTimeout(d)).RoundTrip(newReq(t, context.Background()))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.GreaterOrEqual(t, time.Since(start), d)
}

func TestWithTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	parentDL, _ := parent.Deadline()

	rc := &recorder{}
	_, err := Chain(rc, WithTimeout(time.Second)).RoundTrip(newReq(t, parent))
	require.NoError(t, err)

	childDL, ok := rc.got.Context().Deadline()
	require.True(t, ok)
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestWithTimeout_ZeroDuration_PassThrough(t *testing.T) {
	t.Parallel()

	rc := &recorder{}
	_, err := Chain(rc, WithTimeout(0)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	_, hasDL := rc.got.Context().Deadline()
	require.False(t, hasDL, "no deadline expected when d <= 0")
}

func TestWithTimeout_CancelsOnBodyClose(t *testing.T) {
	t.Parallel()

	rc := &recorder{}
	resp, err := Chain(rc, WithTimeout(time.Minute)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)

	reqCtx := rc.got.Context()
	require.NoError(t, reqCtx.Err())

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))

	require.NoError(t, resp.Body.Close())
	require.ErrorIs(t, reqCtx.Err(), context.Canceled)
}

func TestLogging_GeneratesRequestID_AndLogsOnce(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	rc := &recorder{status: http.StatusCreated}
	rt := Chain(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		// Логгер внедрён в контекст.
		log.From(r.Context()).Info("probe")
		return rc.RoundTrip(r)
	}), Logging(slog.New(h)))

	_, err := rt.RoundTrip(newReq(t, WithAuthToken(context.Background(), "secret-token")))
	require.NoError(t, err)

	rid := rc.got.Header.Get("X-Request-Id")
	_, perr := uuid.Parse(rid)
	require.NoError(t, perr)

	require.Equal(t, 1, h.count["probe"])
	require.Equal(t, 1, h.count["http_client"])
	require.Equal(t, "http_client", h.lastMsg)
	require.Equal(t, rid, h.attrs["request_id"])
	require.Equal(t, "/api/v1/events", h.attrs["path"])
	require.EqualValues(t, http.StatusCreated, h.attrs["status"])

	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}
}

func TestLogging_KeepsExistingRequestID_AndLogsErrors(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	rc := &recorder{err: errors.New("connection refused")}
	rt := Chain(rc, WithMetadata(""), Logging(slog.New(h)))

	_, err := rt.RoundTrip(newReq(t, WithRequestID(context.Background(), "rid-1")))
	require.Error(t, err)

	require.Equal(t, "rid-1", h.attrs["request_id"])
	require.EqualValues(t, 0, h.attrs["status"])
	require.Equal(t, "connection refused", h.attrs["err"])
}

type obsRecorder struct {
	method string
	status int
	calls  int
}

func (o *obsRecorder) ObserveHTTP(method string, status int, _ time.Duration) {
	o.method, o.status = method, status
	o.calls++
}

func TestWithMetrics(t *testing.T) {
	t.Parallel()

	obs := &obsRecorder{}
	_, err := Chain(&recorder{status: http.StatusUnauthorized}, WithMetrics(obs)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.Equal(t, 1, obs.calls)
	require.Equal(t, http.MethodGet, obs.method)
	require.Equal(t, http.StatusUnauthorized, obs.status)

	_, err = Chain(&recorder{err: errors.New("x")}, WithMetrics(obs)).RoundTrip(newReq(t, context.Background()))
	require.Error(t, err)
	require.Equal(t, 0, obs.status)

	// nil observer - прозрачно.
	rc := &recorder{}
	_, err = Chain(rc, WithMetrics(nil)).RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.NotNil(t, rc.got)
}

func TestChain_OrderAndRealServer(t *testing.T) {
	t.Parallel()

	var gotAuth, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := &http.Client{Transport: Chain(nil,
		WithMetadata("ua/1"),
		WithTimeout(time.Second),
		Logging(slog.New(&capHandler{})),
	)}

	req, err := http.NewRequestWithContext(WithAuthToken(context.Background(), "tok"), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "ua/1", gotUA)
}

func TestBound(t *testing.T) {
	t.Parallel()

	ctx, cancel, ok := Bound(context.Background(), 0)
	cancel()
	require.False(t, ok)
	_, hasDL := ctx.Deadline()
	require.False(t, hasDL)

	parent, pcancel := context.WithTimeout(context.Background(), time.Minute)
	defer pcancel()
	ctx, cancel, ok = Bound(parent, time.Second)
	cancel()
	require.False(t, ok)
	require.Equal(t, parent, ctx)

	ctx, cancel, ok = Bound(context.Background(), time.Second)
	require.True(t, ok)
	dl, hasDL := ctx.Deadline()
	require.True(t, hasDL)
	require.WithinDuration(t, time.Now().Add(time.Second), dl, 100*time.Millisecond)
	cancel()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}
