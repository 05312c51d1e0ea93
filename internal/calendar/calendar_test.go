package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

func ev(id uint, t time.Time) models.Event {
	return models.Event{ID: id, Name: "e", StartTime: t, EndTime: t.Add(time.Hour)}
}

func TestMonth_Dimensions(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		now  time.Time
		days int
	}{
		{time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC), 31},
		{time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC), 28},
		{time.Date(2028, time.February, 29, 23, 0, 0, 0, time.UTC), 29},
		{time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC), 30},
	}

	for _, tc := range tcs {
		g := Month(tc.now, nil, time.UTC)
		require.Equal(t, tc.days, g.Days, tc.now.String())
		require.Equal(t, tc.now.Month(), g.Month)
		require.Zero(t, g.Len())
	}
}

func TestMonth_PlacesByStartHour(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
	events := []models.Event{
		ev(1, time.Date(2026, time.October, 14, 18, 30, 0, 0, time.UTC)),
		ev(2, time.Date(2026, time.October, 14, 18, 0, 0, 0, time.UTC)), // ровно начало часа
		ev(3, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)),
		ev(4, time.Date(2026, time.October, 31, 23, 59, 0, 0, time.UTC)),
		ev(5, time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)),    // следующий месяц
		ev(6, time.Date(2026, time.September, 30, 23, 0, 0, 0, time.UTC)), // предыдущий
	}

	g := Month(now, events, time.UTC)
	require.Equal(t, 4, g.Len())

	cell := g.At(14, 18)
	require.Len(t, cell, 2)
	require.Equal(t, uint(2), cell[0].ID, "sorted by start time")
	require.Equal(t, uint(1), cell[1].ID)

	require.Len(t, g.At(1, 0), 1)
	require.Len(t, g.At(31, 23), 1)
	require.Nil(t, g.At(32, 0))
	require.Nil(t, g.At(1, 24))

	busy := g.Busy()
	require.Len(t, busy, 3)
	require.Equal(t, 1, busy[0].Day)
	require.Equal(t, 14, busy[1].Day)
	require.Equal(t, 31, busy[2].Day)
}

func TestMonth_UsesLocation(t *testing.T) {
	t.Parallel()

	tomsk := time.FixedZone("TOMT", 7*3600)
	now := time.Date(2026, time.October, 31, 20, 0, 0, 0, time.UTC) // в Томске уже 1 ноября

	g := Month(now, []models.Event{
		ev(1, time.Date(2026, time.October, 31, 18, 0, 0, 0, time.UTC)), // 1 ноября, 01:00 TOMT
	}, tomsk)

	require.Equal(t, time.November, g.Month)
	require.Len(t, g.At(1, 1), 1)
}
