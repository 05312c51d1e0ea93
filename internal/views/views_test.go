package views

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	"github.com/evgeniyfimushkin/event-planner/internal/authcall"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/guard"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/session"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var unauthorized = apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "unauthenticated", "token expired")

// fakeAPI - сервер в памяти: принимает только токен valid.
type fakeAPI struct {
	mu sync.Mutex

	valid     string
	events    []models.Event
	regs      []models.Registration
	created   []models.CreateEventRequest
	subscribe []uint
	unsub     []uint
	refreshes int
	refresh   func(rt string) (models.TokenPair, error)
	tokens    []string
}

func (f *fakeAPI) check(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tok := transport.AuthToken(ctx)
	f.tokens = append(f.tokens, tok)
	if tok != f.valid {
		return unauthorized
	}
	return nil
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (models.TokenPair, error) {
	if username == "alice" && password == "secret" {
		return models.TokenPair{AccessToken: f.valid, RefreshToken: "r1"}, nil
	}
	return models.TokenPair{}, apierrors.New(apierrors.KindAuthorization, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
}

func (f *fakeAPI) Register(_ context.Context, username, email, _ string) (models.User, error) {
	if username == "taken" {
		return models.User{}, apierrors.New(apierrors.KindValidation, http.StatusConflict, "already_exists", "user already exists")
	}
	return models.User{ID: 7, Username: username, Email: email}, nil
}

func (f *fakeAPI) ListEvents(ctx context.Context, _ url.Values) ([]models.Event, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return f.events, nil
}

func (f *fakeAPI) CreateEvent(ctx context.Context, in models.CreateEventRequest) (models.Event, error) {
	if err := f.check(ctx); err != nil {
		return models.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return models.Event{ID: 42, Name: in.Name}, nil
}

func (f *fakeAPI) MyRegistrations(ctx context.Context) ([]models.Registration, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return f.regs, nil
}

func (f *fakeAPI) Subscribe(ctx context.Context, id uint, _ string) (models.Registration, error) {
	if err := f.check(ctx); err != nil {
		return models.Registration{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribe = append(f.subscribe, id)
	return models.Registration{ID: 1, EventID: id}, nil
}

func (f *fakeAPI) Unsubscribe(ctx context.Context, id uint) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsub = append(f.unsub, id)
	return nil
}

func (f *fakeAPI) Refresh(_ context.Context, rt string) (models.TokenPair, error) {
	f.mu.Lock()
	f.refreshes++
	fn := f.refresh
	f.mu.Unlock()

	if fn == nil {
		return models.TokenPair{}, apierrors.New(apierrors.KindRefresh, http.StatusUnauthorized, "unauthenticated", "refresh rejected")
	}
	return fn(rt)
}

type fixture struct {
	api     *fakeAPI
	session *session.Manager
	router  *guard.Router
	deps    *Deps
	out     *bytes.Buffer
}

func newFixture(t *testing.T, pair *models.TokenPair, input Values) *fixture {
	t.Helper()

	fa := &fakeAPI{valid: "good"}
	m := session.New(credentials.NewMemory().Site("http://localhost:8080"), discard())
	require.NoError(t, m.Restore(context.Background()))
	if pair != nil {
		require.NoError(t, m.Login(context.Background(), *pair))
	}

	r := guard.New(m, PathLogin, discard())
	out := &bytes.Buffer{}
	d := &Deps{
		API:     fa,
		Session: m,
		Caller:  authcall.New(m, fa, authcall.WithLogger(discard())),
		Router:  r,
		Input:   Chain{input},
		Out:     out,
		Logger:  discard(),
		Site:    "http://localhost:8080",
		Now:     func() time.Time { return time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC) },
		Loc:     time.UTC,
	}
	Register(r, d)

	return &fixture{api: fa, session: m, router: r, deps: d, out: out}
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, time.October, day, hour, min, 0, 0, time.UTC)
}

func TestEvents_MarksSubscriptions(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{})
	fx.api.events = []models.Event{
		{ID: 1, Name: "Go meetup", City: "Tomsk", StartTime: at(20, 18, 30), EndTime: at(20, 20, 0), MaxParticipants: 30},
		{ID: 2, Name: "Hackathon", Latitude: 56.5, Longitude: 84.9, StartTime: at(21, 9, 0)},
	}
	fx.api.regs = []models.Registration{{ID: 10, EventID: 1}}

	require.NoError(t, fx.router.Navigate(context.Background(), PathEvents))

	out := fx.out.String()
	require.Contains(t, out, "Go meetup")
	require.Contains(t, out, "Hackathon")
	require.Contains(t, out, "1 *")
	require.NotContains(t, out, "2 *")
	require.Contains(t, out, "2026-10-20 18:30")
	require.Contains(t, out, "56.5000, 84.9000")
	require.Contains(t, out, "Tomsk")
}

func TestEvents_Unauthenticated_ShowsLogin(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, Values{"username": "alice", "password": "secret"})
	fx.api.events = []models.Event{{ID: 1, Name: "Go meetup"}}

	require.NoError(t, fx.router.Navigate(context.Background(), PathEvents))

	require.Equal(t, PathLogin, fx.router.Active())
	require.True(t, fx.session.IsAuthenticated())
	require.NotContains(t, fx.out.String(), "Go meetup")
	require.Empty(t, fx.api.tokens)
}

func TestEvents_ExpiredAccess_RefreshesOnce(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "stale", RefreshToken: "r1"}, Values{})
	fx.api.events = []models.Event{{ID: 1, Name: "Go meetup"}}
	fx.api.refresh = func(rt string) (models.TokenPair, error) {
		require.Equal(t, "r1", rt)
		return models.TokenPair{AccessToken: "good", RefreshToken: "r2"}, nil
	}

	require.NoError(t, fx.router.Navigate(context.Background(), PathEvents))

	require.Equal(t, 1, fx.api.refreshes)
	require.Equal(t, []string{"stale", "good", "good"}, fx.api.tokens)
	require.Contains(t, fx.out.String(), "Go meetup")

	pair, ok := fx.session.Pair()
	require.True(t, ok)
	require.Equal(t, models.TokenPair{AccessToken: "good", RefreshToken: "r2"}, pair)
}

func TestEvents_RefreshRejected_ForcesLogin(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "stale", RefreshToken: "r1"}, Values{})
	fx.api.events = []models.Event{{ID: 1, Name: "Go meetup"}}

	err := fx.router.Navigate(context.Background(), PathEvents)
	require.ErrorIs(t, err, authcall.ErrSessionExpired)
	require.ErrorIs(t, err, ErrMissingInput)

	require.False(t, fx.session.IsAuthenticated())
	require.Equal(t, PathLogin, fx.router.Active())
	require.Equal(t, 1, fx.api.refreshes)
	require.Contains(t, fx.out.String(), "Сессия истекла")
	require.NotContains(t, fx.out.String(), "Go meetup")
}

func TestCalendar_OnlySubscribedInMonth(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{})
	fx.api.events = []models.Event{
		{ID: 1, Name: "Go meetup", StartTime: at(20, 18, 30), EndTime: at(20, 20, 0)},
		{ID: 2, Name: "Not mine", StartTime: at(20, 18, 0)},
		{ID: 3, Name: "Next month", StartTime: time.Date(2026, time.November, 2, 12, 0, 0, 0, time.UTC)},
	}
	fx.api.regs = []models.Registration{{EventID: 1}, {EventID: 3}}

	require.NoError(t, fx.router.Navigate(context.Background(), PathCalendar))

	out := fx.out.String()
	require.Contains(t, out, "October 2026")
	require.Contains(t, out, "Go meetup (#1)")
	require.Contains(t, out, "18:00")
	require.NotContains(t, out, "Not mine")
	require.NotContains(t, out, "Next month")
}

func TestCalendar_Empty(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{})
	fx.api.events = []models.Event{{ID: 1, Name: "Go meetup", StartTime: at(20, 18, 30)}}

	require.NoError(t, fx.router.Navigate(context.Background(), PathCalendar))
	require.Contains(t, fx.out.String(), "подписок нет")
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("ok_then_after_login", func(t *testing.T) {
		fx := newFixture(t, nil, Values{"username": " alice ", "password": "secret"})
		fx.deps.AfterLogin = PathEvents
		fx.api.events = []models.Event{{ID: 1, Name: "Go meetup"}}

		require.NoError(t, fx.router.Navigate(context.Background(), PathLogin))

		require.True(t, fx.session.IsAuthenticated())
		require.Equal(t, PathEvents, fx.router.Active())
		require.Contains(t, fx.out.String(), "Вы вошли как alice")
		require.Contains(t, fx.out.String(), "Go meetup")
	})

	t.Run("bad_password", func(t *testing.T) {
		fx := newFixture(t, nil, Values{"username": "alice", "password": "nope"})

		err := fx.router.Navigate(context.Background(), PathLogin)
		require.True(t, apierrors.IsAuthorization(err))
		require.False(t, fx.session.IsAuthenticated())
		require.Contains(t, fx.out.String(), "доступ запрещён")
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, Values{"username": "bob", "email": "bob@example.com", "password": "pw"})
	require.NoError(t, fx.router.Navigate(context.Background(), PathRegister))
	require.Contains(t, fx.out.String(), "bob зарегистрирован")
	require.False(t, fx.session.IsAuthenticated())

	dup := newFixture(t, nil, Values{"username": "taken", "email": "t@example.com", "password": "pw"})
	err := dup.router.Navigate(context.Background(), PathRegister)
	require.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))
	require.Contains(t, dup.out.String(), "user already exists")

	empty := newFixture(t, nil, Values{"username": "x", "email": "", "password": "pw"})
	require.Error(t, empty.router.Navigate(context.Background(), PathRegister))
	require.Contains(t, empty.out.String(), "required")
}

func TestLogout(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{})
	require.NoError(t, fx.router.Navigate(context.Background(), PathLogout))
	require.False(t, fx.session.IsAuthenticated())
	require.Contains(t, fx.out.String(), "Вы вышли.")
}

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{"city": "Tomsk"})

		require.NoError(t, fx.router.Navigate(context.Background(), PathCreateEvent))
		require.Len(t, fx.api.created, 1)

		got := fx.api.created[0]
		require.Equal(t, DefaultEventName, got.Name)
		require.Equal(t, DefaultEventDescription, got.Description)
		require.Equal(t, DefaultMaxParticipants, got.MaxParticipants)
		require.Equal(t, "Tomsk", got.City)
		require.Equal(t, at(15, 10, 0), got.StartTime)
		require.Equal(t, at(15, 11, 0), got.EndTime)
		require.Contains(t, fx.out.String(), "#42")
	})

	t.Run("explicit", func(t *testing.T) {
		fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{
			"name": "Go meetup", "max": "25", "lat": "56.48", "lon": "84.95",
			"start": "2026-10-20 18:30", "end": "2026-10-20 20:00",
		})

		require.NoError(t, fx.router.Navigate(context.Background(), PathCreateEvent))
		got := fx.api.created[0]
		require.Equal(t, "Go meetup", got.Name)
		require.Equal(t, 25, got.MaxParticipants)
		require.InDelta(t, 56.48, got.Latitude, 1e-9)
		require.Equal(t, at(20, 18, 30), got.StartTime)
	})

	t.Run("bad_time_not_sent", func(t *testing.T) {
		fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{"start": "tomorrow"})

		err := fx.router.Navigate(context.Background(), PathCreateEvent)
		require.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))
		require.Empty(t, fx.api.created)
		require.Empty(t, fx.api.tokens)
	})
}

func TestSubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{"event": "3"})

	require.NoError(t, fx.router.Navigate(context.Background(), PathSubscribe))
	require.NoError(t, fx.router.Navigate(context.Background(), PathUnsubscribe))
	require.Equal(t, []uint{3}, fx.api.subscribe)
	require.Equal(t, []uint{3}, fx.api.unsub)

	bad := newFixture(t, &models.TokenPair{AccessToken: "good", RefreshToken: "r1"}, Values{"event": "zero"})
	err := bad.router.Navigate(context.Background(), PathSubscribe)
	require.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))
	require.Empty(t, bad.api.subscribe)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, Values{})
	require.NoError(t, fx.router.Navigate(context.Background(), PathStatus))

	out := fx.out.String()
	require.Contains(t, out, "http://localhost:8080")
	require.Contains(t, out, "не выполнен")
	require.True(t, strings.Contains(out, "/calendar*"))
}
