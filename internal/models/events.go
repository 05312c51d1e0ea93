package models

import "time"

// Event - мероприятие в том виде, в каком его отдаёт event-service.
type Event struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	ImageData       string    `json:"image_data,omitempty"`
	City            string    `json:"city,omitempty"`
	Address         string    `json:"address,omitempty"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants,omitempty"`
	CreatedBy       uint      `json:"created_by,omitempty"`
	Status          string    `json:"status,omitempty"`
}

// CreateEventRequest - тело POST /api/v1/events.
type CreateEventRequest struct {
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	MaxParticipants int       `json:"max_participants,omitempty"`
	ImageData       string    `json:"image_data,omitempty"`
	City            string    `json:"city,omitempty"`
	Address         string    `json:"address,omitempty"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

// Registration - подписка пользователя на мероприятие.
type Registration struct {
	ID               uint      `json:"id"`
	EventID          uint      `json:"event_id"`
	UserID           uint      `json:"user_id"`
	RegistrationTime time.Time `json:"registration_time"`
	Status           string    `json:"status,omitempty"`
	Comment          string    `json:"comment,omitempty"`
}

// SubscribeRequest - тело POST /api/v1/registrations.
type SubscribeRequest struct {
	EventID uint   `json:"event_id"`
	Comment string `json:"comment,omitempty"`
}

// Subscribed сообщает, есть ли среди регистраций подписка на событие id.
func Subscribed(regs []Registration, id uint) bool {
	for _, r := range regs {
		if r.EventID == id {
			return true
		}
	}

	return false
}
