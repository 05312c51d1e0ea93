// guard - маршрутизация между представлениями с защитой приватных маршрутов.
//
// Решение принимается заново при каждой навигации по текущему состоянию сессии
// и никогда не кешируется. Защищённое представление без сессии не рендерится вовсе,
// поэтому его запросы данных не уходят.
//
// У каждой навигации свой контекст; новая навигация отменяет предыдущую, так что
// поздний ответ для уже неактуального представления приходит в отменённый контекст.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrNotFound - маршрут не зарегистрирован.
var ErrNotFound = errors.New("guard: route not found")

// ErrRedirectLoop - маршрут логина сам оказался защищённым.
var ErrRedirectLoop = errors.New("guard: login route is protected")

// View - представление маршрута.
type View interface {
	Render(ctx context.Context) error
}

// ViewFunc - адаптер функции к View.
type ViewFunc func(ctx context.Context) error

func (f ViewFunc) Render(ctx context.Context) error { return f(ctx) }

// Route - путь, признак защищённости и представление.
type Route struct {
	Path      string
	Protected bool
	View      View
}

// Decision - итог проверки маршрута: рендер либо перенаправление.
type Decision struct {
	Render     bool
	RedirectTo string
}

// Decide - чистая функция решения.
func Decide(authenticated bool, route Route, loginPath string) Decision {
	if route.Protected && !authenticated {
		return Decision{RedirectTo: loginPath}
	}

	return Decision{Render: true}
}

// Session - часть session.Manager, нужная маршрутизатору.
type Session interface {
	IsAuthenticated() bool
	Logout(ctx context.Context) error
}

// Router - реестр маршрутов и текущая навигация.
type Router struct {
	session   Session
	loginPath string
	logger    *slog.Logger

	mu        sync.Mutex
	routes    map[string]Route
	active    string
	cancel    context.CancelFunc
	seq       uint64
	rendering bool
	pending   bool
}

// New создаёт Router. loginPath - маршрут для перенаправлений.
func New(s Session, loginPath string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		session:   s,
		loginPath: loginPath,
		logger:    logger,
		routes:    make(map[string]Route),
	}
}

// Handle регистрирует маршрут (повторная регистрация заменяет прежний).
func (r *Router) Handle(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[route.Path] = route
}

// Routes возвращает зарегистрированные маршруты, отсортированные по пути.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Route, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

// Active возвращает путь текущего (последнего отрендеренного) представления.
func (r *Router) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.active
}

// LoginPath возвращает маршрут логина.
func (r *Router) LoginPath() string { return r.loginPath }

// Navigate переходит на path и рендерит представление.
// Защищённый маршрут без сессии перенаправляется на логин. Если во время рендера
// был вызван ForceLogin, после рендера выполняется переход на логин; ошибка
// представления при этом всё равно возвращается.
func (r *Router) Navigate(ctx context.Context, path string) error {
	const op = "guard.router.Navigate"

	route, err := r.resolve(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	vctx, seq := r.begin(ctx, route.Path)
	viewErr := route.View.Render(vctx)
	redirect := r.end(seq)

	if viewErr != nil {
		viewErr = fmt.Errorf("%s: %s: %w", op, route.Path, viewErr)
	}

	if redirect {
		r.logger.Debug("guard_redirect", slog.String("from", route.Path), slog.String("to", r.loginPath))
		if lerr := r.Navigate(context.WithoutCancel(ctx), r.loginPath); lerr != nil {
			return errors.Join(viewErr, lerr)
		}
	}

	return viewErr
}

// resolve применяет решение к маршруту path.
func (r *Router) resolve(path string) (Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[path]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	d := Decide(r.session.IsAuthenticated(), route, r.loginPath)
	if d.Render {
		return route, nil
	}

	login, ok := r.routes[d.RedirectTo]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrNotFound, d.RedirectTo)
	}
	if login.Protected {
		return Route{}, ErrRedirectLoop
	}

	r.logger.Debug("guard_redirect", slog.String("from", path), slog.String("to", d.RedirectTo))

	return login, nil
}

// begin отменяет предыдущую навигацию и открывает новую.
func (r *Router) begin(ctx context.Context, path string) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	vctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.active = path
	r.seq++
	r.rendering = true
	r.pending = false

	return vctx, r.seq
}

// end закрывает навигацию seq и сообщает, нужен ли переход на логин.
// Если за время рендера началась другая навигация, её состояние не трогается.
func (r *Router) end(seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seq != seq {
		return false
	}

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.rendering = false
	redirect := r.pending
	r.pending = false

	return redirect
}

// ForceLogin - реакция на окончательный отказ в авторизации: выход и переход на логин.
// Сигнатура совпадает с authcall.UnauthorizedFunc.
//
// Во время рендера текущее представление отменяется, а переход выполнит Navigate
// после его завершения. Вне навигации переход выполняется сразу.
func (r *Router) ForceLogin(ctx context.Context, err error) {
	if lerr := r.session.Logout(context.WithoutCancel(ctx)); lerr != nil {
		r.logger.Warn("guard_logout_failed", slog.String("err", lerr.Error()))
	}

	cause := ""
	if err != nil {
		cause = err.Error()
	}
	r.logger.Info("guard_force_login", slog.String("cause", cause))

	r.mu.Lock()
	if r.rendering {
		r.pending = true
		if r.cancel != nil {
			r.cancel()
		}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	if nerr := r.Navigate(context.WithoutCancel(ctx), r.loginPath); nerr != nil {
		r.logger.Warn("guard_force_login_failed", slog.String("err", nerr.Error()))
	}
}
