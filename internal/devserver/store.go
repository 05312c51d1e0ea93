package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

var (
	// ErrNotFound - запись не найдена. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists - пользователь или подписка уже есть. Транспорт: HTTP 409.
	ErrAlreadyExists = errors.New("already exists")

	// ErrEventFull - на мероприятии нет мест. Транспорт: HTTP 412.
	ErrEventFull = errors.New("event is full")
)

type user struct {
	models.User
	hash []byte // bcrypt(passhash)
}

// store - данные сервера в памяти.
type store struct {
	mu     sync.RWMutex
	users  map[string]*user // по username
	events []models.Event
	regs   []models.Registration
	nextID struct{ user, event, reg uint }
}

func newStore() *store {
	return &store{users: make(map[string]*user)}
}

func (s *store) addUser(u models.User, hash []byte) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, ok := s.users[key]; ok {
		return models.User{}, ErrAlreadyExists
	}

	s.nextID.user++
	u.ID = s.nextID.user
	if u.Role == "" {
		u.Role = "user"
	}
	s.users[key] = &user{User: u, hash: hash}

	return u, nil
}

func (s *store) userByName(username string) (*user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *store) userByID(id uint) (*user, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *store) addEvent(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID.event++
	e.ID = s.nextID.event
	if e.Status == "" {
		e.Status = "active"
	}
	s.events = append(s.events, e)

	return e
}

// listEvents возвращает мероприятия по фильтру city/category, отсортированные по началу.
func (s *store) listEvents(city, category string) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		if city != "" && !strings.EqualFold(e.City, city) {
			continue
		}
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *store) subscribe(userID, eventID uint, comment string, now time.Time) (models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ev *models.Event
	for i := range s.events {
		if s.events[i].ID == eventID {
			ev = &s.events[i]
			break
		}
	}
	if ev == nil {
		return models.Registration{}, ErrNotFound
	}

	taken := 0
	for _, r := range s.regs {
		if r.EventID != eventID {
			continue
		}
		if r.UserID == userID {
			return models.Registration{}, ErrAlreadyExists
		}
		taken++
	}
	if ev.MaxParticipants > 0 && taken >= ev.MaxParticipants {
		return models.Registration{}, ErrEventFull
	}

	s.nextID.reg++
	r := models.Registration{
		ID:               s.nextID.reg,
		EventID:          eventID,
		UserID:           userID,
		RegistrationTime: now.UTC(),
		Status:           "registered",
		Comment:          comment,
	}
	s.regs = append(s.regs, r)

	return r, nil
}

func (s *store) unsubscribe(userID, eventID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.regs {
		if r.UserID == userID && r.EventID == eventID {
			s.regs = append(s.regs[:i], s.regs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *store) registrationsOf(userID uint) []models.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Registration, 0)
	for _, r := range s.regs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}
