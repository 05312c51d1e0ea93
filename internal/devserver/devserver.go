// devserver - локальный сервер с теми эндпоинтами, которые потребляет клиент.
//
// Данные живут в памяти процесса. Пароль приходит уже дайджестом (passhash) и хранится
// как bcrypt от дайджеста. Access-токены - HS256 JWT, refresh-токены - случайные строки,
// сгруппированные в сессии (ULID): refresh ротирует токен, а повторное предъявление
// старого отзывает всю сессию.
//
// Режим CookieOnly воспроизводит исходный auth-сервис: login отдаёт только cookie
// refresh_token, refresh - только access-токен без ротации.
package devserver

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evgeniyfimushkin/event-planner/internal/config"
	"github.com/evgeniyfimushkin/event-planner/internal/devserver/middleware"
)

// Options - параметры сервера.
type Options struct {
	Logger *slog.Logger
	Auth   config.ServerAuth

	RegisterPerMinute int
	RegisterBurst     int
	Timeout           time.Duration

	CookieOnly bool

	// Registerer для метрик; nil - метрики не собираются.
	Registerer prometheus.Registerer

	// Now - часы сервера (тесты сдвигают время, чтобы access-токен истёк).
	Now func() time.Time
}

// Stats - счётчики для тестов и логов.
type Stats struct {
	Logins          int64
	Refreshes       int64
	RefreshRejected int64
	Unauthorized    int64
}

// Server - обработчики и состояние локального сервера.
type Server struct {
	opts    Options
	logger  *slog.Logger
	store   *store
	tokens  *tokens
	metrics *serverMetrics

	logins          atomic.Int64
	refreshes       atomic.Int64
	refreshRejected atomic.Int64
	unauthorized    atomic.Int64
}

// New создаёт сервер.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Auth.AccessTokenTTL <= 0 {
		opts.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if opts.Auth.RefreshTokenTTL <= 0 {
		opts.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		store:  newStore(),
		tokens: newTokens(opts.Auth.JWTSecret, opts.Auth.Issuer,
			opts.Auth.AccessTokenTTL, opts.Auth.RefreshTokenTTL, opts.Now),
	}
	if opts.Registerer != nil {
		s.metrics = newServerMetrics(opts.Registerer)
	}

	return s
}

// Stats возвращает текущие счётчики.
func (s *Server) Stats() Stats {
	return Stats{
		Logins:          s.logins.Load(),
		Refreshes:       s.refreshes.Load(),
		RefreshRejected: s.refreshRejected.Load(),
		Unauthorized:    s.unauthorized.Load(),
	}
}

// Handler собирает http.Handler с chi и подключёнными middleware/роутами.
func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()

	var obs middleware.Observer
	if s.metrics != nil {
		obs = s.metrics
	}

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(s.logger, obs),
		middleware.AuthBearer(),
	)
	if s.opts.Timeout > 0 {
		root.Use(middleware.Timeout(s.opts.Timeout))
	}

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, r, ErrNotFound)
	})

	root.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(s.opts.RegisterPerMinute, s.opts.RegisterBurst, middleware.ClientIP)).
			Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.Get("/auth/refresh", s.refresh)
		r.Post("/auth/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/events", s.listEvents)
			r.Post("/events", s.createEvent)
			r.Post("/registrations", s.subscribe)
			r.Get("/registrations/my", s.myRegistrations)
			r.Delete("/registrations/my", s.unsubscribe)
		})
	})

	return root
}
