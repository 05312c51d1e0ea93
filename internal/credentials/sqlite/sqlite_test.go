package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials/storetest"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestSQLiteStore_Contract(t *testing.T) {
	db := openTestDB(t)

	storetest.Run(t, func(t *testing.T, site string) credentials.Store {
		return db.Site(site)
	})
}

func TestSQLiteStore_InMemory(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	s := db.Site("http://localhost:8080")
	require.NoError(t, s.Set(context.Background(), models.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	got, ok, err := s.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", got.AccessToken)
}

func TestSQLiteStore_PartialRowIsNone(t *testing.T) {
	db := openTestDB(t)
	site := "http://localhost:8080"

	_, err := db.db.ExecContext(context.Background(),
		`INSERT INTO entries (site, name, value) VALUES (?, ?, ?)`, site, models.EntryRefreshToken, "r")
	require.NoError(t, err)

	_, ok, err := db.Site(site).Get(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	// Clear убирает и частичную запись.
	require.NoError(t, db.Site(site).Clear(context.Background()))

	var n int
	require.NoError(t, db.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM entries WHERE site = ?`, site).Scan(&n))
	require.Zero(t, n)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	pair := models.TokenPair{AccessToken: "a", RefreshToken: "r"}

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Site("http://x").Set(context.Background(), pair))
	require.NoError(t, db.Close())

	// Повторное применение миграций - ErrNoChange, не ошибка.
	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	got, ok, err := db.Site("http://x").Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair, got)
}

func TestSQLiteStore_CanceledContext(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.Site("http://x").Set(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"})
	require.ErrorIs(t, err, context.Canceled)
}
