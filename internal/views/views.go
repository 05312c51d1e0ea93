// views - текстовые представления клиента: список мероприятий, календарь, формы.
//
// Представление - guard.View: оно получает контекст навигации, спрашивает ввод через
// Prompter и пишет результат в io.Writer. Защищённые запросы идут через authcall.Do,
// onUnauthorized - Router.ForceLogin.
package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/authcall"
	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/guard"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/session"
)

// Пути маршрутов.
const (
	PathEvents      = "/"
	PathCalendar    = "/calendar"
	PathLogin       = "/login"
	PathRegister    = "/register"
	PathLogout      = "/logout"
	PathStatus      = "/status"
	PathCreateEvent = "/events/new"
	PathSubscribe   = "/events/subscribe"
	PathUnsubscribe = "/events/unsubscribe"
)

// TimeLayout - формат ввода и вывода времени мероприятий.
const TimeLayout = "2006-01-02 15:04"

// API - эндпоинты, которые вызывают представления (api.Client).
type API interface {
	Login(ctx context.Context, username, password string) (models.TokenPair, error)
	Register(ctx context.Context, username, email, password string) (models.User, error)
	ListEvents(ctx context.Context, filter url.Values) ([]models.Event, error)
	CreateEvent(ctx context.Context, in models.CreateEventRequest) (models.Event, error)
	MyRegistrations(ctx context.Context) ([]models.Registration, error)
	Subscribe(ctx context.Context, eventID uint, comment string) (models.Registration, error)
	Unsubscribe(ctx context.Context, eventID uint) error
}

// Deps - зависимости представлений.
type Deps struct {
	API     API
	Session *session.Manager
	Caller  *authcall.Caller
	Router  *guard.Router
	Input   Prompter
	Out     io.Writer
	Logger  *slog.Logger

	// Site - origin API, показывается в статусе.
	Site string
	// AfterLogin - маршрут, на который переходить после успешного входа ("" - остаться).
	AfterLogin string
	// Now и Loc задают "сейчас" и пояс календаря.
	Now func() time.Time
	Loc *time.Location
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) loc() *time.Location {
	if d.Loc != nil {
		return d.Loc
	}
	return time.Local
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// onUnauthorized - хук для authcall.Do.
func (d *Deps) onUnauthorized(ctx context.Context, err error) {
	if d.Router != nil {
		d.Router.ForceLogin(ctx, err)
		return
	}
	_ = d.Session.Logout(context.WithoutCancel(ctx))
}

// Register регистрирует все представления в маршрутизаторе.
func Register(r *guard.Router, d *Deps) {
	r.Handle(guard.Route{Path: PathEvents, Protected: true, View: &EventsView{d: d}})
	r.Handle(guard.Route{Path: PathCalendar, Protected: true, View: &CalendarView{d: d}})
	r.Handle(guard.Route{Path: PathCreateEvent, Protected: true, View: &CreateEventView{d: d}})
	r.Handle(guard.Route{Path: PathSubscribe, Protected: true, View: &SubscribeView{d: d}})
	r.Handle(guard.Route{Path: PathUnsubscribe, Protected: true, View: &UnsubscribeView{d: d}})
	r.Handle(guard.Route{Path: PathLogin, View: &LoginView{d: d}})
	r.Handle(guard.Route{Path: PathRegister, View: &RegisterView{d: d}})
	r.Handle(guard.Route{Path: PathLogout, View: &LogoutView{d: d}})
	r.Handle(guard.Route{Path: PathStatus, View: &StatusView{d: d}})
}

// report печатает человекочитаемое описание ошибки и возвращает её же.
func report(w io.Writer, what string, err error) error {
	if err == nil {
		return nil
	}

	var ae *apierrors.Error
	switch {
	case errors.Is(err, authcall.ErrSessionExpired):
		fmt.Fprintln(w, "Сессия истекла, войдите снова.")
	case errors.Is(err, context.Canceled):
		// Представление ушло с экрана.
		return err
	case errors.Is(err, ErrMissingInput):
		fmt.Fprintf(w, "%s: не заполнено поле\n", what)
	case errors.As(err, &ae) && ae.Kind == apierrors.KindValidation:
		fmt.Fprintf(w, "%s: отклонено: %s\n", what, ae.Message)
	case errors.As(err, &ae) && ae.Kind == apierrors.KindAuthorization:
		fmt.Fprintf(w, "%s: доступ запрещён: %s\n", what, ae.Message)
	case apierrors.KindOf(err) == apierrors.KindServer:
		fmt.Fprintf(w, "%s: ошибка сервера, попробуйте позже\n", what)
	default:
		fmt.Fprintf(w, "%s: сервер недоступен\n", what)
	}

	return err
}

// feed - данные списка и календаря.
type feed struct {
	events []models.Event
	regs   []models.Registration
}

// loadFeed загружает мероприятия и подписки одной защищённой операцией.
func (d *Deps) loadFeed(ctx context.Context) (feed, error) {
	return authcall.Do(ctx, d.Caller, func(ctx context.Context) (feed, error) {
		events, err := d.API.ListEvents(ctx, nil)
		if err != nil {
			return feed{}, err
		}
		regs, err := d.API.MyRegistrations(ctx)
		if err != nil {
			return feed{}, err
		}
		return feed{events: events, regs: regs}, nil
	}, d.onUnauthorized)
}
