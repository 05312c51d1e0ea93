// credentials - долговременное хранилище пары токенов на стороне клиента.
//
// Пара хранится двумя именованными записями (access_token, refresh_token) в области
// конкретного сайта - origin API вида "http://localhost:8080". Разные сайты не видят
// записей друг друга. Хранилище не ходит в сеть и не разбирает токены.
//
// Драйверы:
//   - Memory (этот пакет) - в памяти процесса, для тестов и --ephemeral;
//   - file - JSON-документ на диске;
//   - sqlite - локальная БД с таблицей entries;
//   - redis - hash на сайт, общий для нескольких клиентов.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks github.com/evgeniyfimushkin/event-planner/internal/credentials Store

// Store - контракт хранилища пары токенов одного сайта.
type Store interface {
	// Get возвращает пару и признак её наличия.
	// Если есть только одна из двух записей, пары нет (found=false).
	Get(ctx context.Context) (models.TokenPair, bool, error)
	// Set сохраняет обе записи.
	Set(ctx context.Context, pair models.TokenPair) error
	// Clear удаляет обе записи за одну операцию. Очистка пустого хранилища - не ошибка.
	Clear(ctx context.Context) error
}

// Ошибки хранилища.
var (
	// ErrIncompletePair - попытка сохранить пару без одного из токенов.
	ErrIncompletePair = errors.New("incomplete token pair")
	// ErrInvalidSite - origin сайта не удалось разобрать.
	ErrInvalidSite = errors.New("invalid site")
)

// StoreError - сбой драйвера хранилища.
type StoreError struct {
	Op   string // get, set, clear, open
	Site string
	Err  error
}

func (e *StoreError) Error() string {
	msg := "credentials " + e.Op
	if e.Site != "" {
		msg += " for " + e.Site
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap оборачивает ошибку драйвера в *StoreError. nil остаётся nil.
func Wrap(op, site string, err error) error {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return err
	}

	return &StoreError{Op: op, Site: site, Err: err}
}

// Validate проверяет пару перед записью.
func Validate(site string, pair models.TokenPair) error {
	if !pair.Complete() {
		return &StoreError{Op: "set", Site: site, Err: ErrIncompletePair}
	}

	return nil
}

// PairFromEntries собирает пару из записей; частичный набор означает её отсутствие.
func PairFromEntries(entries map[string]string) (models.TokenPair, bool) {
	pair := models.TokenPair{
		AccessToken:  entries[models.EntryAccessToken],
		RefreshToken: entries[models.EntryRefreshToken],
	}
	if !pair.Complete() {
		return models.TokenPair{}, false
	}

	return pair, true
}

// SiteOf выделяет из базового URL API область хранения: scheme://host[:port] в нижнем регистре.
func SiteOf(rawURL string) (string, error) {
	const op = "credentials.store.SiteOf"

	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrInvalidSite, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s: %w: %q", op, ErrInvalidSite, rawURL)
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
