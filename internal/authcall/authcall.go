// authcall - обёртка защищённых запросов: одна попытка, при 401 один refresh
// и ровно один повтор.
//
// Автомат одного вызова:
//
//	start --op ok--------------------------------------------> terminal(value)
//	start --op err(не 401)-----------------------------------> terminal(err)
//	start --op 401--> afterFirstAttempt
//	afterFirstAttempt --в сессии уже другой access-----------> afterRefresh (без refresh)
//	afterFirstAttempt --refresh ok, Rotate ok----------------> afterRefresh
//	afterFirstAttempt --refresh transport/server-------------> terminal(err), без logout
//	afterFirstAttempt --refresh 401 / нет refresh / logout----> terminal(ErrSessionExpired), onUnauthorized
//	afterRefresh --op ok-------------------------------------> terminal(value)
//	afterRefresh --op 401------------------------------------> terminal(ErrSessionExpired), onUnauthorized
//	afterRefresh --op err(не 401)----------------------------> terminal(err)
//
// Больше одного refresh и одного повтора на вызов не бывает. Конкурентные refresh
// одного refresh-токена сливаются в один запрос (singleflight), если это не отключено.
package authcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/evgeniyfimushkin/event-planner/internal/api/transport"
	apierrors "github.com/evgeniyfimushkin/event-planner/internal/errors"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/session"
	"github.com/evgeniyfimushkin/event-planner/pkg/redact"
)

// ErrSessionExpired - вызов завершён принудительным выходом: refresh невозможен
// или повтор снова получил 401. Причина доступна через errors.Is/As.
var ErrSessionExpired = errors.New("authcall: session expired")

// ErrNoRefreshToken - в сессии нет refresh-токена.
var ErrNoRefreshToken = errors.New("authcall: no refresh token")

// DefaultRefreshTimeout ограничивает refresh, если таймаут не задан.
const DefaultRefreshTimeout = 10 * time.Second

// Operation - защищённая операция. Access-токен лежит в ctx (transport.AuthToken).
type Operation[T any] func(ctx context.Context) (T, error)

// UnauthorizedFunc - реакция на окончательный отказ в авторизации (обычно logout + переход на login).
type UnauthorizedFunc func(ctx context.Context, err error)

// Refresher выпускает новую пару по refresh-токену. Пустой RefreshToken в ответе
// означает, что прежний остаётся в силе.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// Session - часть session.Manager, нужная обёртке.
type Session interface {
	Pair() (models.TokenPair, bool)
	Rotate(ctx context.Context, pair models.TokenPair) error
}

// Исходы refresh для Observer.
const (
	OutcomeOK         = "ok"
	OutcomeRejected   = "rejected"   // сервер отверг refresh-токен
	OutcomeFailed     = "failed"     // транспорт или сервер
	OutcomeSuperseded = "superseded" // сессия завершилась, пока шёл refresh
	OutcomeCanceled   = "canceled"
)

// Причины повтора для Observer.
const (
	RetryRefreshed  = "refreshed"
	RetryStaleToken = "stale_token"
)

// Observer получает события обёртки (метрики).
type Observer interface {
	RefreshStarted()
	RefreshFinished(outcome string)
	Retried(reason string)
	ForcedLogout()
}

type nopObserver struct{}

func (nopObserver) RefreshStarted()        {}
func (nopObserver) RefreshFinished(string) {}
func (nopObserver) Retried(string)         {}
func (nopObserver) ForcedLogout()          {}

// Caller хранит зависимости обёртки. Безопасен для конкурентного использования.
type Caller struct {
	session   Session
	refresher Refresher
	logger    *slog.Logger
	observer  Observer

	coalesce       bool
	refreshTimeout time.Duration
	group          singleflight.Group
}

// Option настраивает Caller.
type Option func(*Caller)

// WithCoalescing включает/выключает слияние конкурентных refresh. По умолчанию включено.
func WithCoalescing(on bool) Option { return func(c *Caller) { c.coalesce = on } }

// WithRefreshTimeout задаёт таймаут одного refresh. d <= 0 - DefaultRefreshTimeout.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Caller) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithObserver подключает наблюдателя событий.
func WithObserver(o Observer) Option {
	return func(c *Caller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(l *slog.Logger) Option {
	return func(c *Caller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New создаёт Caller.
func New(s Session, r Refresher, opts ...Option) *Caller {
	c := &Caller{
		session:        s,
		refresher:      r,
		logger:         slog.Default(),
		observer:       nopObserver{},
		coalesce:       true,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, o := range opts {
		o(c)
	}

	return c
}

var _ Session = (*session.Manager)(nil)

type step int

const (
	stepStart step = iota
	stepAfterFirstAttempt
	stepAfterRefresh
)

// Do выполняет op по автомату пакета.
//
// Возвращает:
//   - значение op при успехе первой попытки или повтора;
//   - ctx.Err(), если контекст завершился после попытки;
//   - ошибку ErrSessionExpired (обёртка над причиной) после вызова onUnauthorized;
//   - иначе исходную ошибку op или refresh без изменений.
func Do[T any](ctx context.Context, c *Caller, op Operation[T], onUnauthorized UnauthorizedFunc) (T, error) {
	var (
		zero    T
		st      = stepStart
		usedTok string
		nextTok string
		lastErr error
	)

	for {
		switch st {
		case stepStart:
			if pair, ok := c.session.Pair(); ok {
				usedTok = pair.AccessToken
			}

			v, err := op(transport.WithAuthToken(ctx, usedTok))
			if cerr := ctx.Err(); cerr != nil {
				return zero, cerr
			}
			if err == nil {
				return v, nil
			}
			if !apierrors.IsAuthorization(err) {
				return zero, err
			}

			lastErr = err
			st = stepAfterFirstAttempt

		case stepAfterFirstAttempt:
			// Конкурентный вызов уже обновил токен: повторяем с ним, без второго refresh.
			if pair, ok := c.session.Pair(); ok && pair.AccessToken != "" && pair.AccessToken != usedTok {
				nextTok = pair.AccessToken
				c.observer.Retried(RetryStaleToken)
				c.logger.Debug("authcall_retry", slog.String("reason", RetryStaleToken))
				st = stepAfterRefresh
				continue
			}

			pair, err := c.refresh(ctx)
			if cerr := ctx.Err(); cerr != nil {
				return zero, cerr
			}
			if err != nil {
				if refreshRejected(err) {
					return zero, c.expire(ctx, onUnauthorized, err)
				}
				return zero, err
			}

			nextTok = pair.AccessToken
			c.observer.Retried(RetryRefreshed)
			c.logger.Debug("authcall_retry", slog.String("reason", RetryRefreshed))
			st = stepAfterRefresh

		case stepAfterRefresh:
			v, err := op(transport.WithAuthToken(ctx, nextTok))
			if cerr := ctx.Err(); cerr != nil {
				return zero, cerr
			}
			if err == nil {
				return v, nil
			}
			if apierrors.IsAuthorization(err) {
				return zero, c.expire(ctx, onUnauthorized, err)
			}

			return zero, err

		default:
			return zero, fmt.Errorf("authcall: unexpected step %d: %w", st, lastErr)
		}
	}
}

// refreshRejected: отказ в refresh означает конец сессии; транспорт и сервер - нет.
func refreshRejected(err error) bool {
	if errors.Is(err, ErrNoRefreshToken) || errors.Is(err, session.ErrNotAuthenticated) {
		return true
	}

	switch apierrors.KindOf(err) {
	case apierrors.KindRefresh, apierrors.KindAuthorization:
		return true
	default:
		return false
	}
}

func (c *Caller) expire(ctx context.Context, onUnauthorized UnauthorizedFunc, cause error) error {
	c.observer.ForcedLogout()
	c.logger.Info("authcall_forced_logout",
		slog.String("kind", apierrors.KindOf(cause).String()),
		slog.String("err", cause.Error()),
	)

	if onUnauthorized != nil {
		onUnauthorized(ctx, cause)
	}

	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

// refresh получает новую пару и кладёт её в сессию.
// При слиянии запрос отвязан от отмены вызывающего и ограничен refreshTimeout;
// отменённый вызывающий просто перестаёт ждать.
func (c *Caller) refresh(ctx context.Context) (models.TokenPair, error) {
	const op = "authcall.refresh"

	cur, ok := c.session.Pair()
	if !ok || cur.RefreshToken == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op,
			apierrors.WithKind(ErrNoRefreshToken, apierrors.KindRefresh))
	}

	if !c.coalesce {
		return c.doRefresh(ctx, cur)
	}

	ch := c.group.DoChan(cur.RefreshToken, func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx), cur)
	})

	select {
	case <-ctx.Done():
		return models.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.TokenPair{}, res.Err
		}
		return res.Val.(models.TokenPair), nil
	}
}

func (c *Caller) doRefresh(ctx context.Context, cur models.TokenPair) (models.TokenPair, error) {
	const op = "authcall.doRefresh"

	rctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	c.observer.RefreshStarted()
	c.logger.Debug("authcall_refresh_started", slog.String("refresh_token", redact.Token(cur.RefreshToken)))

	next, err := c.refresher.Refresh(rctx, cur.RefreshToken)
	if err != nil {
		outcome := OutcomeFailed
		switch {
		case apierrors.IsContext(err) && ctx.Err() != nil:
			outcome = OutcomeCanceled
		case refreshRejected(err):
			outcome = OutcomeRejected
		}
		c.observer.RefreshFinished(outcome)
		c.logger.Warn("authcall_refresh_failed",
			slog.String("outcome", outcome),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	merged := cur.Merge(next)
	if err := c.session.Rotate(rctx, merged); err != nil {
		outcome := OutcomeFailed
		if errors.Is(err, session.ErrNotAuthenticated) {
			outcome = OutcomeSuperseded
		}
		c.observer.RefreshFinished(outcome)
		c.logger.Warn("authcall_refresh_failed",
			slog.String("outcome", outcome),
			slog.String("err", err.Error()),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	c.observer.RefreshFinished(OutcomeOK)
	c.logger.Debug("authcall_refresh_ok", slog.String("access_token", redact.Token(merged.AccessToken)))

	return merged, nil
}
