package devserver

import (
	"fmt"
	"time"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
	"github.com/evgeniyfimushkin/event-planner/internal/passhash"
)

// Демо-пользователь сида.
const (
	DemoUsername = "demo"
	DemoPassword = "demo-password"
)

// Seed заводит демо-пользователя и несколько мероприятий в ближайшие дни.
func (s *Server) Seed() error {
	const op = "devserver.seed.Seed"

	digest, err := passhash.Digest(DemoUsername, DemoPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.CreateUser(DemoUsername, "demo@example.com", digest)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	day := s.opts.Now().UTC().Truncate(24 * time.Hour)
	events := []models.CreateEventRequest{
		{
			Name: "Go meetup", Description: "Доклады про конкурентность", Category: "tech",
			City: "Tomsk", Address: "пр. Ленина, 36", MaxParticipants: 40,
			StartTime: day.Add(2*24*time.Hour + 18*time.Hour),
			EndTime:   day.Add(2*24*time.Hour + 20*time.Hour),
		},
		{
			Name: "Вечерняя пробежка", Category: "sport", City: "Tomsk",
			Latitude: 56.4846, Longitude: 84.9476, MaxParticipants: 15,
			StartTime: day.Add(3*24*time.Hour + 7*time.Hour),
			EndTime:   day.Add(3*24*time.Hour + 8*time.Hour),
		},
		{
			Name: "Настольные игры", Description: "No description", Category: "fun",
			City: "Novosibirsk", Address: "ул. Советская, 18", MaxParticipants: 8,
			StartTime: day.Add(5*24*time.Hour + 19*time.Hour),
		},
	}

	for _, e := range events {
		if _, err := s.CreateEvent(u.ID, e); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.logger.Info("seeded", "user", DemoUsername, "events", len(events))
	return nil
}
