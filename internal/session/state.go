package session

import (
	"errors"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// ErrEmptyAccessToken - попытка построить Authenticated без access-токена.
var ErrEmptyAccessToken = errors.New("session: empty access token")

// State - состояние сессии: Unauthenticated либо Authenticated.
// Других реализаций нет: интерфейс закрыт неэкспортируемым методом.
type State interface {
	isState()
	// Authenticated сообщает, привязана ли к состоянию пара токенов.
	Authenticated() bool
}

// Unauthenticated - пользователь не вошёл.
type Unauthenticated struct{}

func (Unauthenticated) isState()            {}
func (Unauthenticated) Authenticated() bool { return false }

// Authenticated - пользователь вошёл, пара токенов на руках.
// Строится только через NewAuthenticated.
type Authenticated struct {
	pair models.TokenPair
}

// NewAuthenticated строит состояние; пустой access-токен недопустим.
func NewAuthenticated(pair models.TokenPair) (Authenticated, error) {
	if pair.AccessToken == "" {
		return Authenticated{}, ErrEmptyAccessToken
	}

	return Authenticated{pair: pair}, nil
}

func (Authenticated) isState() {}

// Authenticated ложно для нулевого значения: вход без access-токена невозможен.
func (a Authenticated) Authenticated() bool { return a.pair.AccessToken != "" }

// Pair возвращает пару токенов состояния.
func (a Authenticated) Pair() models.TokenPair { return a.pair }

// Phase - этап жизненного цикла менеджера.
type Phase int

const (
	// PhaseUninitialized - хранилище ещё не прочитано.
	PhaseUninitialized Phase = iota
	// PhaseRestored - состояние выведено из хранилища (Restore) или задано явно.
	PhaseRestored
)

func (p Phase) String() string {
	if p == PhaseRestored {
		return "restored"
	}

	return "uninitialized"
}
