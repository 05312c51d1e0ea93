package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/session"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type countingView struct {
	n  atomic.Int32
	fn func(ctx context.Context) error
}

func (v *countingView) Render(ctx context.Context) error {
	v.n.Add(1)
	if v.fn != nil {
		return v.fn(ctx)
	}
	return nil
}

func newManager(t *testing.T, loggedIn bool) *session.Manager {
	t.Helper()
	m := session.New(credentials.NewMemory().Site("http://localhost:8080"), discard())
	require.NoError(t, m.Restore(context.Background()))
	if loggedIn {
		require.NoError(t, m.Login(context.Background(), models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	}
	return m
}

func newRouter(t *testing.T, m *session.Manager) (*Router, *countingView, *countingView) {
	t.Helper()
	r := New(m, "/login", discard())
	login := &countingView{}
	events := &countingView{}
	r.Handle(Route{Path: "/login", View: login})
	r.Handle(Route{Path: "/", Protected: true, View: events})
	return r, login, events
}

func TestDecide(t *testing.T) {
	t.Parallel()

	protected := Route{Path: "/", Protected: true}
	public := Route{Path: "/login"}

	tcs := []struct {
		name  string
		auth  bool
		route Route
		want  Decision
	}{
		{"protected_auth", true, protected, Decision{Render: true}},
		{"protected_unauth", false, protected, Decision{RedirectTo: "/login"}},
		{"public_auth", true, public, Decision{Render: true}},
		{"public_unauth", false, public, Decision{Render: true}},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Decide(tc.auth, tc.route, "/login"))
		})
	}
}

// TestNavigate_ProtectedUnauthenticated_Redirects - свежий запуск без пары: логин, защищённое не рендерится.
func TestNavigate_ProtectedUnauthenticated_Redirects(t *testing.T) {
	t.Parallel()

	r, login, events := newRouter(t, newManager(t, false))

	require.NoError(t, r.Navigate(context.Background(), "/"))
	require.Zero(t, events.n.Load())
	require.EqualValues(t, 1, login.n.Load())
	require.Equal(t, "/login", r.Active())
}

// TestNavigate_ProtectedAuthenticated_Renders - с сохранённой парой рендер без сети.
func TestNavigate_ProtectedAuthenticated_Renders(t *testing.T) {
	t.Parallel()

	r, login, events := newRouter(t, newManager(t, true))

	require.NoError(t, r.Navigate(context.Background(), "/"))
	require.EqualValues(t, 1, events.n.Load())
	require.Zero(t, login.n.Load())
	require.Equal(t, "/", r.Active())
}

// TestNavigate_ReevaluatesEveryTime - решение не кешируется.
func TestNavigate_ReevaluatesEveryTime(t *testing.T) {
	t.Parallel()

	m := newManager(t, true)
	r, login, events := newRouter(t, m)

	require.NoError(t, r.Navigate(context.Background(), "/"))
	require.NoError(t, m.Logout(context.Background()))
	require.NoError(t, r.Navigate(context.Background(), "/"))

	require.EqualValues(t, 1, events.n.Load())
	require.EqualValues(t, 1, login.n.Load())
}

func TestNavigate_NotFound(t *testing.T) {
	t.Parallel()

	r, _, _ := newRouter(t, newManager(t, true))
	require.ErrorIs(t, r.Navigate(context.Background(), "/nope"), ErrNotFound)

	bare := New(newManager(t, false), "/login", discard())
	bare.Handle(Route{Path: "/", Protected: true, View: &countingView{}})
	require.ErrorIs(t, bare.Navigate(context.Background(), "/"), ErrNotFound)
}

func TestNavigate_ProtectedLoginIsLoop(t *testing.T) {
	t.Parallel()

	r := New(newManager(t, false), "/login", discard())
	r.Handle(Route{Path: "/login", Protected: true, View: &countingView{}})
	r.Handle(Route{Path: "/", Protected: true, View: &countingView{}})

	require.ErrorIs(t, r.Navigate(context.Background(), "/"), ErrRedirectLoop)
}

func TestNavigate_ViewErrorReturned(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := New(newManager(t, true), "/login", discard())
	r.Handle(Route{Path: "/x", View: ViewFunc(func(context.Context) error { return boom })})

	require.ErrorIs(t, r.Navigate(context.Background(), "/x"), boom)
}

// TestNavigate_CancelsPreviousView - поздний ответ старого представления попадает в отменённый контекст.
func TestNavigate_CancelsPreviousView(t *testing.T) {
	t.Parallel()

	r, _, _ := newRouter(t, newManager(t, true))

	started := make(chan struct{})
	var slowErr error
	r.Handle(Route{Path: "/calendar", Protected: true, View: ViewFunc(func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = r.Navigate(context.Background(), "/calendar")
	}()

	<-started
	require.NoError(t, r.Navigate(context.Background(), "/"))
	wg.Wait()

	require.ErrorIs(t, slowErr, context.Canceled)
	require.Equal(t, "/", r.Active())
}

// TestForceLogin_DuringRender - выход, отмена текущего представления и переход на логин после рендера.
func TestForceLogin_DuringRender(t *testing.T) {
	t.Parallel()

	m := newManager(t, true)
	r, login, _ := newRouter(t, m)

	expired := errors.New("session expired")
	r.Handle(Route{Path: "/events", Protected: true, View: ViewFunc(func(ctx context.Context) error {
		r.ForceLogin(ctx, expired)
		require.ErrorIs(t, ctx.Err(), context.Canceled)
		return expired
	})})

	err := r.Navigate(context.Background(), "/events")
	require.ErrorIs(t, err, expired)
	require.False(t, m.IsAuthenticated())
	require.EqualValues(t, 1, login.n.Load())
	require.Equal(t, "/login", r.Active())
}

// TestForceLogin_Outside - вне навигации переход выполняется сразу.
func TestForceLogin_Outside(t *testing.T) {
	t.Parallel()

	m := newManager(t, true)
	r, login, _ := newRouter(t, m)

	r.ForceLogin(context.Background(), nil)
	require.False(t, m.IsAuthenticated())
	require.EqualValues(t, 1, login.n.Load())
	require.Equal(t, "/login", r.Active())
}

func TestRoutes_Sorted(t *testing.T) {
	t.Parallel()

	r, _, _ := newRouter(t, newManager(t, false))
	routes := r.Routes()
	require.Len(t, routes, 2)
	require.Equal(t, "/", routes[0].Path)
	require.Equal(t, "/login", routes[1].Path)
	require.Equal(t, "/login", r.LoginPath())
}
