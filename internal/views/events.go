package views

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
)

// EventsView - список мероприятий с отметкой подписок.
type EventsView struct{ d *Deps }

func (v *EventsView) Render(ctx context.Context) error {
	fmt.Fprintln(v.d.Out, "Загрузка...")

	f, err := v.d.loadFeed(ctx)
	if err != nil {
		return report(v.d.Out, "Не удалось загрузить мероприятия", err)
	}

	if len(f.events) == 0 {
		fmt.Fprintln(v.d.Out, "Мероприятий пока нет.")
		return nil
	}

	tw := tabwriter.NewWriter(v.d.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tНАЗВАНИЕ\tНАЧАЛО\tКОНЕЦ\tМЕСТО\tМЕСТ\tКАТЕГОРИЯ\t")
	for _, e := range f.events {
		mark := ""
		if models.Subscribed(f.regs, e.ID) {
			mark = " *"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			e.ID, mark, e.Name,
			v.d.formatTime(e.StartTime), v.d.formatTime(e.EndTime),
			place(e), e.MaxParticipants, e.Category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(v.d.Out, "* - вы подписаны")

	return nil
}

// place собирает адрес мероприятия: город, адрес, иначе координаты.
func place(e models.Event) string {
	parts := make([]string, 0, 2)
	if e.City != "" {
		parts = append(parts, e.City)
	}
	if e.Address != "" {
		parts = append(parts, e.Address)
	}
	if len(parts) == 0 && (e.Latitude != 0 || e.Longitude != 0) {
		return fmt.Sprintf("%.4f, %.4f", e.Latitude, e.Longitude)
	}
	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, ", ")
}
