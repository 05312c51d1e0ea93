// file - драйвер credentials.Store поверх одного JSON-документа на диске.
//
// Документ хранит записи всех сайтов: {"<site>": {"access_token": "...", "refresh_token": "..."}}.
// Запись атомарна: новый документ пишется во временный файл рядом и переименовывается
// поверх старого. Права файла - 0600.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

const fileMode = 0o600

// errCorrupt - документ на диске не разбирается как JSON.
var errCorrupt = errors.New("credentials file is corrupt")

// Документы одного пути внутри процесса сериализуются общим мьютексом.
var locks sync.Map

func lockFor(path string) *sync.Mutex {
	mu, _ := locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Store - хранилище одного сайта в файле path.
type Store struct {
	path string
	site string
	mu   *sync.Mutex
}

// New создаёт хранилище. Каталог файла создаётся при необходимости.
func New(path, site string) (*Store, error) {
	const op = "credentials.file.New"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, credentials.Wrap("open", site, fmt.Errorf("%s: %w", op, err))
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return nil, credentials.Wrap("open", site, fmt.Errorf("%s: %w", op, err))
	}

	return &Store{path: abs, site: site, mu: lockFor(abs)}, nil
}

// Path возвращает абсолютный путь документа.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context) (models.TokenPair, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
	}

	pair, ok := credentials.PairFromEntries(doc[s.site])
	return pair, ok, nil
}

func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	if err := ctx.Err(); err != nil {
		return credentials.Wrap("set", s.site, err)
	}
	if err := credentials.Validate(s.site, pair); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.readForWrite()
	if err != nil {
		return credentials.Wrap("set", s.site, err)
	}

	doc[s.site] = map[string]string{
		models.EntryAccessToken:  pair.AccessToken,
		models.EntryRefreshToken: pair.RefreshToken,
	}

	return credentials.Wrap("set", s.site, s.write(doc))
}

func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return credentials.Wrap("clear", s.site, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, corrupt, err := s.readForWrite()
	if err != nil {
		return credentials.Wrap("clear", s.site, err)
	}
	if _, ok := doc[s.site]; !ok && !corrupt {
		return nil
	}

	delete(doc, s.site)
	return credentials.Wrap("clear", s.site, s.write(doc))
}

type document map[string]map[string]string

// read читает документ; отсутствующий или пустой файл - пустой документ.
func (s *Store) read() (document, error) {
	const op = "credentials.file.read"

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(raw) == 0 {
		return document{}, nil
	}

	doc := document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %s: %w", op, errCorrupt, s.path, err)
	}

	return doc, nil
}

// readForWrite - read для Set и Clear. Битый документ не блокирует вход и выход:
// он считается пустым (corrupt == true) и перезаписывается целиком.
func (s *Store) readForWrite() (doc document, corrupt bool, err error) {
	doc, err = s.read()
	if errors.Is(err, errCorrupt) {
		slog.Default().Warn("credentials_file_corrupt",
			slog.String("path", s.path),
			slog.String("err", err.Error()),
		)
		return document{}, true, nil
	}

	return doc, false, err
}

func (s *Store) write(doc document) error {
	const op = "credentials.file.write"

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // после успешного rename файла уже нет

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
