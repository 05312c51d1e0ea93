package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/authcall"
	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// Значения формы мероприятия по умолчанию.
const (
	DefaultEventName        = "Untitled"
	DefaultEventDescription = "No description"
	DefaultMaxParticipants  = 100
)

// form читает поля по очереди и запоминает первую ошибку.
type form struct {
	ctx context.Context
	in  Prompter
	err error
}

func (f *form) text(key, label, def string) string {
	if f.err != nil {
		return ""
	}
	s, err := f.in.Ask(f.ctx, Field{Key: key, Label: label, Default: def})
	if err != nil {
		f.err = err
	}
	return s
}

func (f *form) optional(key, label string) string {
	if f.err != nil {
		return ""
	}
	s, err := f.in.Ask(f.ctx, Field{Key: key, Label: label, Optional: true})
	if err != nil {
		f.err = err
	}
	return s
}

func (f *form) secret(key, label string) string {
	if f.err != nil {
		return ""
	}
	s, err := f.in.Ask(f.ctx, Field{Key: key, Label: label, Secret: true})
	if err != nil {
		f.err = err
	}
	return s
}

func (f *form) invalid(format string, args ...any) {
	if f.err == nil {
		f.err = apierrors.New(apierrors.KindValidation, 0, "invalid_argument", fmt.Sprintf(format, args...))
	}
}

func (f *form) number(key, label string, def int) int {
	s := f.text(key, label, strconv.Itoa(def))
	if f.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		f.invalid("%s: expected a non-negative number", key)
		return 0
	}
	return n
}

func (f *form) id(key, label string) uint {
	s := f.text(key, label, "")
	if f.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		f.invalid("%s: expected an event id", key)
		return 0
	}
	return uint(n)
}

func (f *form) real(key, label string) float64 {
	s := f.text(key, label, "0")
	if f.err != nil {
		return 0
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f.invalid("%s: expected a number", key)
		return 0
	}
	return x
}

func (f *form) when(key, label, def string, loc *time.Location) time.Time {
	s := f.text(key, label, def)
	if f.err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(TimeLayout, s, loc)
	if err != nil {
		f.invalid("%s: expected %q", key, TimeLayout)
		return time.Time{}
	}
	return t
}

func (d *Deps) formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(d.loc()).Format(TimeLayout)
}

// CreateEventView - форма создания мероприятия.
type CreateEventView struct{ d *Deps }

func (v *CreateEventView) Render(ctx context.Context) error {
	const what = "Не удалось создать мероприятие"

	loc := v.d.loc()
	start := v.d.now().In(loc).Truncate(time.Hour).Add(24 * time.Hour)

	f := &form{ctx: ctx, in: v.d.Input}
	req := models.CreateEventRequest{
		Name:            strings.TrimSpace(f.text("name", "Название", DefaultEventName)),
		Description:     f.text("description", "Описание", DefaultEventDescription),
		Category:        f.optional("category", "Категория"),
		MaxParticipants: f.number("max", "Мест", DefaultMaxParticipants),
		City:            f.optional("city", "Город"),
		Address:         f.optional("address", "Адрес"),
		Latitude:        f.real("lat", "Широта"),
		Longitude:       f.real("lon", "Долгота"),
		StartTime:       f.when("start", "Начало", start.Format(TimeLayout), loc),
		EndTime:         f.when("end", "Конец", start.Add(time.Hour).Format(TimeLayout), loc),
	}
	if f.err != nil {
		return report(v.d.Out, what, f.err)
	}

	e, err := authcall.Do(ctx, v.d.Caller, func(ctx context.Context) (models.Event, error) {
		return v.d.API.CreateEvent(ctx, req)
	}, v.d.onUnauthorized)
	if err != nil {
		return report(v.d.Out, what, err)
	}

	fmt.Fprintf(v.d.Out, "Мероприятие #%d %q создано.\n", e.ID, e.Name)
	return nil
}

// SubscribeView - подписка на мероприятие.
type SubscribeView struct{ d *Deps }

func (v *SubscribeView) Render(ctx context.Context) error {
	const what = "Не удалось подписаться"

	f := &form{ctx: ctx, in: v.d.Input}
	id := f.id("event", "Номер мероприятия")
	comment := f.optional("comment", "Комментарий")
	if f.err != nil {
		return report(v.d.Out, what, f.err)
	}

	_, err := authcall.Do(ctx, v.d.Caller, func(ctx context.Context) (models.Registration, error) {
		return v.d.API.Subscribe(ctx, id, comment)
	}, v.d.onUnauthorized)
	if err != nil {
		return report(v.d.Out, what, err)
	}

	fmt.Fprintf(v.d.Out, "Вы подписаны на мероприятие #%d.\n", id)
	return nil
}

// UnsubscribeView - отмена подписки.
type UnsubscribeView struct{ d *Deps }

func (v *UnsubscribeView) Render(ctx context.Context) error {
	const what = "Не удалось отменить подписку"

	f := &form{ctx: ctx, in: v.d.Input}
	id := f.id("event", "Номер мероприятия")
	if f.err != nil {
		return report(v.d.Out, what, f.err)
	}

	_, err := authcall.Do(ctx, v.d.Caller, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, v.d.API.Unsubscribe(ctx, id)
	}, v.d.onUnauthorized)
	if err != nil {
		return report(v.d.Out, what, err)
	}

	fmt.Fprintf(v.d.Out, "Подписка на мероприятие #%d отменена.\n", id)
	return nil
}
