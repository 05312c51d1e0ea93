package views

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/calendar"
	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// CalendarView - календарь текущего месяца по подпискам пользователя.
type CalendarView struct{ d *Deps }

func (v *CalendarView) Render(ctx context.Context) error {
	fmt.Fprintln(v.d.Out, "Загрузка...")

	f, err := v.d.loadFeed(ctx)
	if err != nil {
		return report(v.d.Out, "Не удалось загрузить календарь", err)
	}

	mine := make([]models.Event, 0, len(f.regs))
	for _, e := range f.events {
		if models.Subscribed(f.regs, e.ID) {
			mine = append(mine, e)
		}
	}

	grid := calendar.Month(v.d.now(), mine, v.d.loc())
	return renderGrid(v.d.Out, grid)
}

func renderGrid(w io.Writer, g calendar.Grid) error {
	title := time.Date(g.Year, g.Month, 1, 0, 0, 0, 0, g.Loc).Format("January 2006")
	fmt.Fprintln(w, title)

	busy := g.Busy()
	if len(busy) == 0 {
		fmt.Fprintln(w, "В этом месяце подписок нет.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ДЕНЬ\tЧАС\tМЕРОПРИЯТИЯ\t")
	lastDay := 0
	for _, s := range busy {
		day := ""
		if s.Day != lastDay {
			day = time.Date(g.Year, g.Month, s.Day, 0, 0, 0, 0, g.Loc).Format("02 Mon")
			lastDay = s.Day
		}

		names := make([]string, 0, len(s.Events))
		for _, e := range s.Events {
			names = append(names, fmt.Sprintf("%s (#%d)", e.Name, e.ID))
		}
		fmt.Fprintf(tw, "%s\t%02d:00\t%s\t\n", day, s.Hour, strings.Join(names, "; "))
	}

	return tw.Flush()
}
