package credentials

import (
	"context"
	"sync"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// Memory - хранилище записей в памяти процесса, разбитое по сайтам.
type Memory struct {
	mu      sync.Mutex
	entries map[string]map[string]string
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]map[string]string)}
}

// Site возвращает Store для области site.
func (m *Memory) Site(site string) Store {
	return &memorySite{m: m, site: site}
}

type memorySite struct {
	m    *Memory
	site string
}

func (s *memorySite) Get(ctx context.Context) (models.TokenPair, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, false, Wrap("get", s.site, err)
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	pair, ok := PairFromEntries(s.m.entries[s.site])
	return pair, ok, nil
}

func (s *memorySite) Set(ctx context.Context, pair models.TokenPair) error {
	if err := ctx.Err(); err != nil {
		return Wrap("set", s.site, err)
	}
	if err := Validate(s.site, pair); err != nil {
		return err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	s.m.entries[s.site] = map[string]string{
		models.EntryAccessToken:  pair.AccessToken,
		models.EntryRefreshToken: pair.RefreshToken,
	}

	return nil
}

func (s *memorySite) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Wrap("clear", s.site, err)
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	delete(s.m.entries, s.site)
	return nil
}
