// app - сборка клиента: хранилище учётных данных, сессия, HTTP-клиент, обёртка
// защищённых вызовов, маршрутизатор и представления.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/evgeniyfimushkin/event-planner/internal/api"
	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	"github.com/evgeniyfimushkin/event-planner/internal/authcall"
	"github.com/evgeniyfimushkin/event-planner/internal/config"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/guard"
	"github.com/evgeniyfimushkin/event-planner/internal/metrics"
	"github.com/evgeniyfimushkin/event-planner/internal/session"
	"github.com/evgeniyfimushkin/event-planner/internal/views"
)

// Options - параметры сборки.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	Input views.Prompter
	Out   io.Writer

	// Ephemeral заменяет хранилище из конфигурации памятью процесса.
	Ephemeral bool
	// AfterLogin - маршрут после успешного входа (оболочка).
	AfterLogin string
	// Base - нижний RoundTripper (nil - http.DefaultTransport).
	Base http.RoundTripper
}

// App - собранный клиент одного сайта.
type App struct {
	Site    string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Store   credentials.Store
	Session *session.Manager
	API     *api.Client
	Caller  *authcall.Caller
	Router  *guard.Router
	Views   *views.Deps

	closers []io.Closer
}

// New собирает клиент. Сессия ещё не восстановлена: вызовите Restore.
func New(ctx context.Context, opts Options) (*App, error) {
	const op = "app.New"

	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%s: nil config", op)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	site, err := credentials.SiteOf(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	storeCfg := cfg.Store
	if opts.Ephemeral {
		storeCfg.Driver = config.DriverMemory
	}

	store, closer, err := OpenStore(ctx, storeCfg, site)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{Site: site, Logger: log, Store: store}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Metrics = metrics.New()

	// Цепочка исходящих запросов: metadata -> timeout -> metrics -> logging.
	hc := &http.Client{
		Transport: transport.Chain(opts.Base,
			transport.WithMetadata(cfg.API.UserAgent),
			transport.WithTimeout(cfg.Timeouts.Request),
			transport.WithMetrics(a.Metrics),
			transport.Logging(log),
		),
	}

	a.API, err = api.New(cfg.API.BaseURL, hc, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.Session = session.New(store, log)
	a.Session.Subscribe(a.Metrics.SessionListener())

	a.Caller = authcall.New(a.Session, a.API,
		authcall.WithCoalescing(cfg.Auth.CoalesceRefresh),
		authcall.WithRefreshTimeout(cfg.Timeouts.Refresh),
		authcall.WithObserver(a.Metrics),
		authcall.WithLogger(log),
	)

	a.Router = guard.New(a.Session, views.PathLogin, log)

	input := opts.Input
	if input == nil {
		input = views.Chain{}
	}
	a.Views = &views.Deps{
		API:        a.API,
		Session:    a.Session,
		Caller:     a.Caller,
		Router:     a.Router,
		Input:      input,
		Out:        out,
		Logger:     log,
		Site:       site,
		AfterLogin: opts.AfterLogin,
	}
	views.Register(a.Router, a.Views)

	log.Debug("app_initialized",
		slog.String("site", site),
		slog.String("store", storeCfg.Driver),
		slog.Bool("coalesce_refresh", cfg.Auth.CoalesceRefresh),
	)

	return a, nil
}

// Restore восстанавливает сессию из хранилища без сетевых вызовов.
// Ошибка хранилища не фатальна: клиент стартует неаутентифицированным.
func (a *App) Restore(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		a.Logger.Warn("session_restore_failed", slog.String("err", err.Error()))
		return err
	}

	a.Logger.Debug("session_restored", slog.Bool("authenticated", a.Session.IsAuthenticated()))
	return nil
}

// Navigate - переход на маршрут.
func (a *App) Navigate(ctx context.Context, path string) error {
	return a.Router.Navigate(ctx, path)
}

// Close освобождает ресурсы хранилища.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}
