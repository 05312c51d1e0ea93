// storetest - общий набор проверок для драйверов credentials.Store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// Factory возвращает хранилище для области site. Все вызовы в пределах одного
// теста должны разделять общее бэкенд-хранилище, чтобы проверялась изоляция сайтов.
type Factory func(t *testing.T, site string) credentials.Store

// Run прогоняет контракт хранилища.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	pair := models.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}

	t.Run("empty_store_has_no_pair", func(t *testing.T) {
		s := newStore(t, "http://empty.local")

		got, ok, err := s.Get(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, models.TokenPair{}, got)
	})

	t.Run("set_then_get", func(t *testing.T) {
		s := newStore(t, "http://set.local")

		require.NoError(t, s.Set(context.Background(), pair))

		got, ok, err := s.Get(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pair, got)
	})

	t.Run("set_overwrites", func(t *testing.T) {
		s := newStore(t, "http://overwrite.local")
		next := models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}

		require.NoError(t, s.Set(context.Background(), pair))
		require.NoError(t, s.Set(context.Background(), next))

		got, ok, err := s.Get(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, next, got)
	})

	t.Run("clear_removes_both_entries", func(t *testing.T) {
		s := newStore(t, "http://clear.local")

		require.NoError(t, s.Set(context.Background(), pair))
		require.NoError(t, s.Clear(context.Background()))

		_, ok, err := s.Get(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("clear_empty_is_ok", func(t *testing.T) {
		s := newStore(t, "http://clear-empty.local")
		require.NoError(t, s.Clear(context.Background()))
		require.NoError(t, s.Clear(context.Background()))
	})

	t.Run("incomplete_pair_rejected", func(t *testing.T) {
		s := newStore(t, "http://incomplete.local")

		err := s.Set(context.Background(), models.TokenPair{AccessToken: "only-access"})
		require.ErrorIs(t, err, credentials.ErrIncompletePair)

		var se *credentials.StoreError
		require.True(t, errors.As(err, &se))
		require.Equal(t, "set", se.Op)

		_, ok, err := s.Get(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("sites_are_isolated", func(t *testing.T) {
		a := newStore(t, "http://a.local")
		b := newStore(t, "http://b.local")

		require.NoError(t, a.Set(context.Background(), pair))

		_, ok, err := b.Get(context.Background())
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, b.Set(context.Background(), models.TokenPair{AccessToken: "b-a", RefreshToken: "b-r"}))
		require.NoError(t, b.Clear(context.Background()))

		got, ok, err := a.Get(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, pair, got)
	})
}
