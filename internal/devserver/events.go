package devserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evgeniyfimushkin/event-planner/internal/models"
	logctx "github.com/evgeniyfimushkin/event-planner/pkg/log"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.store.listEvents(q.Get("city"), q.Get("category")))
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	e, err := s.CreateEvent(userID(r.Context()), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("event_created", slog.Uint64("event_id", uint64(e.ID)))
	writeJSON(w, http.StatusCreated, e)
}

// CreateEvent добавляет мероприятие от имени пользователя uid.
func (s *Server) CreateEvent(uid uint, req models.CreateEventRequest) (models.Event, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return models.Event{}, badRequest("name is required")
	case req.StartTime.IsZero():
		return models.Event{}, badRequest("start_time is required")
	case !req.EndTime.IsZero() && req.EndTime.Before(req.StartTime):
		return models.Event{}, badRequest("end_time is before start_time")
	case req.MaxParticipants < 0:
		return models.Event{}, badRequest("max_participants must be non-negative")
	}

	return s.store.addEvent(models.Event{
		Name:            name,
		Description:     req.Description,
		Category:        req.Category,
		ImageData:       req.ImageData,
		City:            req.City,
		Address:         req.Address,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		MaxParticipants: req.MaxParticipants,
		CreatedBy:       uid,
	}), nil
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.EventID == 0 {
		writeErr(w, r, badRequest("event_id is required"))
		return
	}

	reg, err := s.store.subscribe(userID(r.Context()), req.EventID, req.Comment, s.opts.Now())
	if err != nil {
		writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) myRegistrations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.registrationsOf(userID(r.Context())))
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("event_id"), 10, 64)
	if err != nil || id == 0 {
		writeErr(w, r, badRequest("event_id is required"))
		return
	}

	if err := s.store.unsubscribe(userID(r.Context()), uint(id)); err != nil {
		writeErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
