// calendar - раскладка мероприятий по сетке "день месяца x час".
package calendar

import (
	"sort"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// HoursPerDay - строки сетки, часы 0..23.
const HoursPerDay = 24

// Slot - занятая ячейка сетки.
type Slot struct {
	Day    int
	Hour   int
	Events []models.Event
}

// Grid - месяц в часовом поясе Loc.
type Grid struct {
	Year  int
	Month time.Month
	Days  int
	Loc   *time.Location

	cells map[[2]int][]models.Event
}

// Month строит сетку месяца, в который попадает now (в поясе loc).
// Мероприятие попадает в ячейку (день, час), содержащую его start_time:
// [час:00, час+1:00). Мероприятия вне месяца отбрасываются.
func Month(now time.Time, events []models.Event, loc *time.Location) Grid {
	if loc == nil {
		loc = time.Local
	}

	now = now.In(loc)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	g := Grid{
		Year:  first.Year(),
		Month: first.Month(),
		Days:  next.AddDate(0, 0, -1).Day(),
		Loc:   loc,
		cells: make(map[[2]int][]models.Event),
	}

	for _, ev := range events {
		st := ev.StartTime.In(loc)
		if st.Before(first) || !st.Before(next) {
			continue
		}
		k := [2]int{st.Day(), st.Hour()}
		g.cells[k] = append(g.cells[k], ev)
	}

	for k := range g.cells {
		evs := g.cells[k]
		sort.SliceStable(evs, func(i, j int) bool { return evs[i].StartTime.Before(evs[j].StartTime) })
	}

	return g
}

// At возвращает мероприятия ячейки. Вне сетки - nil.
func (g Grid) At(day, hour int) []models.Event {
	if day < 1 || day > g.Days || hour < 0 || hour >= HoursPerDay {
		return nil
	}

	return g.cells[[2]int{day, hour}]
}

// Busy возвращает занятые ячейки по возрастанию (день, час).
func (g Grid) Busy() []Slot {
	out := make([]Slot, 0, len(g.cells))
	for k, evs := range g.cells {
		out = append(out, Slot{Day: k[0], Hour: k[1], Events: evs})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Hour < out[j].Hour
	})

	return out
}

// Len - число мероприятий в сетке.
func (g Grid) Len() int {
	n := 0
	for _, evs := range g.cells {
		n += len(evs)
	}

	return n
}
