// sqlite - драйвер credentials.Store поверх локальной БД SQLite (modernc.org/sqlite).
//
// Записи лежат в таблице entries(site, name, value); схема управляется golang-migrate.
// Set и Clear выполняются одной транзакцией, поэтому пара не бывает записана наполовину.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// DB - открытая база, общая для нескольких сайтов.
type DB struct {
	db *sql.DB
}

// Store - хранилище одного сайта.
type Store struct {
	db   *sql.DB
	site string
}

// Open открывает базу по dsn (путь к файлу или ":memory:") и применяет миграции.
func Open(ctx context.Context, dsn string) (*DB, error) {
	const op = "credentials.sqlite.Open"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// SQLite не допускает конкурентной записи; одно соединение также
	// сохраняет единую базу для ":memory:".
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: pragma: %w", op, err)
	}

	s := &Store{db: db}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &DB{db: db}, nil
}

// Site возвращает хранилище области site.
func (d *DB) Site(site string) *Store {
	return &Store{db: d.db, site: site}
}

// Ping проверяет соединение.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) Close() error { return d.db.Close() }

func (s *Store) Get(ctx context.Context) (models.TokenPair, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM entries WHERE site = ? AND name IN (?, ?)`,
		s.site, models.EntryAccessToken, models.EntryRefreshToken)
	if err != nil {
		return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
	}
	defer rows.Close()

	entries := make(map[string]string, 2)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
		}
		entries[name] = value
	}
	if err := rows.Err(); err != nil {
		return models.TokenPair{}, false, credentials.Wrap("get", s.site, err)
	}

	pair, ok := credentials.PairFromEntries(entries)
	return pair, ok, nil
}

func (s *Store) Set(ctx context.Context, pair models.TokenPair) error {
	if err := credentials.Validate(s.site, pair); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		const q = `INSERT INTO entries (site, name, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (site, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

		if _, err := tx.ExecContext(ctx, q, s.site, models.EntryAccessToken, pair.AccessToken); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, q, s.site, models.EntryRefreshToken, pair.RefreshToken)
		return err
	})

	return credentials.Wrap("set", s.site, err)
}

func (s *Store) Clear(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM entries WHERE site = ? AND name IN (?, ?)`,
			s.site, models.EntryAccessToken, models.EntryRefreshToken)
		return err
	})

	return credentials.Wrap("clear", s.site, err)
}

// withTx выполняет fn в транзакции: commit при успехе, rollback иначе.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // после commit - no-op
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
