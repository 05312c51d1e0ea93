package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// Все методы файла - защищённые ресурсы: access-токен должен лежать в контексте.

// ListEvents возвращает мероприятия. filter - условия поиска (например, city=Tomsk).
func (c *Client) ListEvents(ctx context.Context, filter url.Values) ([]models.Event, error) {
	const op = "api.events.ListEvents"

	var out []models.Event
	if _, err := c.call(ctx, http.MethodGet, PathEvents, filter, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// CreateEvent создаёт мероприятие.
func (c *Client) CreateEvent(ctx context.Context, in models.CreateEventRequest) (models.Event, error) {
	const op = "api.events.CreateEvent"

	if in.Name == "" {
		return models.Event{}, fmt.Errorf("%s: %w", op,
			apierrors.New(apierrors.KindValidation, 0, "invalid_argument", "event name is required"))
	}
	if !in.EndTime.IsZero() && in.EndTime.Before(in.StartTime) {
		return models.Event{}, fmt.Errorf("%s: %w", op,
			apierrors.New(apierrors.KindValidation, 0, "invalid_argument", "event ends before it starts"))
	}

	var out models.Event
	if _, err := c.call(ctx, http.MethodPost, PathEvents, nil, in, &out); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// MyRegistrations возвращает подписки текущего пользователя.
func (c *Client) MyRegistrations(ctx context.Context) ([]models.Registration, error) {
	const op = "api.events.MyRegistrations"

	var out []models.Registration
	if _, err := c.call(ctx, http.MethodGet, PathMyRegistrations, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Subscribe подписывает текущего пользователя на мероприятие.
func (c *Client) Subscribe(ctx context.Context, eventID uint, comment string) (models.Registration, error) {
	const op = "api.events.Subscribe"

	var out models.Registration
	if _, err := c.call(ctx, http.MethodPost, PathRegistrations, nil,
		models.SubscribeRequest{EventID: eventID, Comment: comment}, &out); err != nil {
		return models.Registration{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Unsubscribe отменяет подписку текущего пользователя на мероприятие.
func (c *Client) Unsubscribe(ctx context.Context, eventID uint) error {
	const op = "api.events.Unsubscribe"

	q := url.Values{"event_id": []string{strconv.FormatUint(uint64(eventID), 10)}}
	if _, err := c.call(ctx, http.MethodDelete, PathMyRegistrations, q, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
