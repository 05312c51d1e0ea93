package views

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evgeniyfimushkin/event-planner/internal/guard"
	"github.com/evgeniyfimushkin/event-planner/pkg/redact"
)

// LoginView - вход по имени и паролю.
type LoginView struct{ d *Deps }

func (v *LoginView) Render(ctx context.Context) error {
	const what = "Не удалось войти"

	f := &form{ctx: ctx, in: v.d.Input}
	username := strings.TrimSpace(f.text("username", "Имя пользователя", ""))
	password := f.secret("password", "Пароль")
	if f.err != nil {
		return report(v.d.Out, what, f.err)
	}

	pair, err := v.d.API.Login(ctx, username, password)
	if err != nil {
		return report(v.d.Out, what, err)
	}
	if err := v.d.Session.Login(ctx, pair); err != nil {
		return report(v.d.Out, what, err)
	}

	v.d.logger().Info("login_ok", slog.String("username", username),
		slog.String("access_token", redact.Token(pair.AccessToken)))
	fmt.Fprintf(v.d.Out, "Вы вошли как %s.\n", username)

	if v.d.AfterLogin != "" && v.d.Router != nil {
		return v.d.Router.Navigate(context.WithoutCancel(ctx), v.d.AfterLogin)
	}

	return nil
}

// RegisterView - регистрация нового пользователя.
type RegisterView struct{ d *Deps }

func (v *RegisterView) Render(ctx context.Context) error {
	const what = "Не удалось зарегистрироваться"

	f := &form{ctx: ctx, in: v.d.Input}
	username := strings.TrimSpace(f.text("username", "Имя пользователя", ""))
	email := strings.TrimSpace(f.text("email", "Email", ""))
	password := f.secret("password", "Пароль")
	if f.err == nil && (username == "" || email == "" || password == "") {
		f.invalid("username, email and password are required")
	}
	if f.err != nil {
		return report(v.d.Out, what, f.err)
	}

	u, err := v.d.API.Register(ctx, username, email, password)
	if err != nil {
		return report(v.d.Out, what, err)
	}

	v.d.logger().Info("register_ok", slog.String("username", u.Username),
		slog.String("email", redact.Email(u.Email)))
	fmt.Fprintf(v.d.Out, "Пользователь %s зарегистрирован, теперь войдите.\n", u.Username)

	return nil
}

// LogoutView - выход. Локальное состояние сбрасывается всегда.
type LogoutView struct{ d *Deps }

func (v *LogoutView) Render(ctx context.Context) error {
	if err := v.d.Session.Logout(ctx); err != nil {
		fmt.Fprintln(v.d.Out, "Вы вышли, но сохранённые данные удалить не удалось.")
		return err
	}

	fmt.Fprintln(v.d.Out, "Вы вышли.")
	return nil
}

// StatusView - текущее состояние сессии.
type StatusView struct{ d *Deps }

func (v *StatusView) Render(context.Context) error {
	state := "не выполнен"
	if v.d.Session.IsAuthenticated() {
		state = "выполнен"
	}

	fmt.Fprintf(v.d.Out, "Сервер: %s\n", v.d.Site)
	fmt.Fprintf(v.d.Out, "Вход: %s\n", state)
	if v.d.Router != nil {
		fmt.Fprintf(v.d.Out, "Маршруты: %s\n", strings.Join(paths(v.d.Router.Routes()), " "))
	}

	return nil
}

func paths(routes []guard.Route) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		p := r.Path
		if r.Protected {
			p += "*"
		}
		out = append(out, p)
	}
	return out
}
