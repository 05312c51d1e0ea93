// session - состояние сессии клиента и единственный его владелец, Manager.
//
// Manager держит текущее State и двигает его синхронно с хранилищем:
// запись в хранилище выполняется под тем же мьютексом, что и смена состояния,
// поэтому читатель никогда не видит Authenticated при пустом хранилище после Logout
// (и наоборот, в пределах процесса).
//
// Переходы:
//
//	unauth --Login--> auth
//	auth   --Logout--> unauth
//	auth   --Rotate--> auth (новая пара после refresh)
//
// Restore при старте оптимистичен: пара в хранилище означает Authenticated без
// обращения к сети. Протухший токен обнаружится на первом защищённом запросе.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/pkg/redact"
)

// ErrNotAuthenticated - Rotate вызван после выхода: поздний refresh не воскрешает сессию.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// ErrIncompletePair - Login с неполной парой.
var ErrIncompletePair = errors.New("session: incomplete token pair")

// Listener получает новое состояние после каждого перехода.
type Listener func(State)

// Manager - владелец состояния сессии.
type Manager struct {
	store  credentials.Store
	logger *slog.Logger

	mu    sync.RWMutex
	state State
	phase Phase

	lmu       sync.Mutex
	listeners []Listener
}

// New создаёт менеджер в фазе uninitialized с состоянием Unauthenticated.
func New(store credentials.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		store:  store,
		logger: logger,
		state:  Unauthenticated{},
		phase:  PhaseUninitialized,
	}
}

// Restore выводит состояние из хранилища. Сеть не используется.
// Ошибка чтения оставляет Unauthenticated, фаза всё равно становится restored.
func (m *Manager) Restore(ctx context.Context) error {
	const op = "session.manager.Restore"

	m.mu.Lock()
	pair, found, err := m.store.Get(ctx)

	var next State = Unauthenticated{}
	if err == nil && found {
		if a, aerr := NewAuthenticated(pair); aerr == nil {
			next = a
		}
	}
	m.state = next
	m.phase = PhaseRestored
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("session_restore_failed", slog.String("err", err.Error()))
		m.notify(next)
		return fmt.Errorf("%s: %w", op, err)
	}

	m.logger.Debug("session_restored", slog.Bool("authenticated", next.Authenticated()))
	m.notify(next)

	return nil
}

// Login сохраняет пару и переводит сессию в Authenticated. Повторный вызов перезаписывает пару.
func (m *Manager) Login(ctx context.Context, pair models.TokenPair) error {
	const op = "session.manager.Login"

	if !pair.Complete() {
		return fmt.Errorf("%s: %w", op, ErrIncompletePair)
	}
	next, err := NewAuthenticated(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	if err := m.store.Set(ctx, pair); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	m.state = next
	m.phase = PhaseRestored
	m.mu.Unlock()

	m.logger.Info("session_login", slog.String("access_token", redact.Token(pair.AccessToken)))
	m.notify(next)

	return nil
}

// Logout переводит сессию в Unauthenticated и очищает хранилище.
// Переход выполняется всегда; ошибка хранилища возвращается только для отчёта.
// Очистка не зависит от отмены ctx: флаг и хранилище меняются вместе.
func (m *Manager) Logout(ctx context.Context) error {
	const op = "session.manager.Logout"

	m.mu.Lock()
	m.state = Unauthenticated{}
	m.phase = PhaseRestored
	err := m.store.Clear(context.WithoutCancel(ctx))
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("session_logout_clear_failed", slog.String("err", err.Error()))
	} else {
		m.logger.Info("session_logout")
	}
	m.notify(Unauthenticated{})

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Rotate заменяет пару после успешного refresh.
// Если сессия уже не аутентифицирована, возвращает ErrNotAuthenticated и ничего не пишет.
func (m *Manager) Rotate(ctx context.Context, pair models.TokenPair) error {
	const op = "session.manager.Rotate"

	next, err := NewAuthenticated(pair)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	if !m.state.Authenticated() {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	if err := m.store.Set(ctx, pair); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	m.state = next
	m.mu.Unlock()

	m.logger.Debug("session_rotated", slog.String("access_token", redact.Token(pair.AccessToken)))
	m.notify(next)

	return nil
}

// IsAuthenticated - чистое чтение текущего состояния.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Authenticated()
}

// State возвращает текущее состояние.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Pair возвращает пару текущей сессии, если она аутентифицирована.
func (m *Manager) Pair() (models.TokenPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.state.(Authenticated)
	if !ok || !a.Authenticated() {
		return models.TokenPair{}, false
	}

	return a.Pair(), true
}

// Phase возвращает этап жизненного цикла.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.phase
}

// Subscribe регистрирует слушателя переходов. Слушатель вызывается вне блокировки состояния.
func (m *Manager) Subscribe(l Listener) {
	if l == nil {
		return
	}

	m.lmu.Lock()
	m.listeners = append(m.listeners, l)
	m.lmu.Unlock()
}

func (m *Manager) notify(s State) {
	m.lmu.Lock()
	ls := append([]Listener(nil), m.listeners...)
	m.lmu.Unlock()

	for _, l := range ls {
		l(s)
	}
}
