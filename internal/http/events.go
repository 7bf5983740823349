package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

type eventRequest struct {
	ClubID            string     `json:"clubId"`
	Title             string     `json:"title"`
	Description       *string    `json:"description"`
	EventType         string     `json:"eventType"`
	PosterURL         *string    `json:"posterUrl"`
	VenueAddress      *string    `json:"venueAddress"`
	IsOnline          bool       `json:"isOnline"`
	OnlineLink        *string    `json:"onlineLink"`
	StartAt           time.Time  `json:"startAt"`
	EndAt             *time.Time `json:"endAt"`
	RegistrationOpen  *time.Time `json:"registrationOpen"`
	RegistrationClose *time.Time `json:"registrationClose"`
	MaxCapacity       *int32     `json:"maxCapacity"`
	IsPublished       *bool      `json:"isPublished"`
}

type eventPatchRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	EventType         *string    `json:"eventType"`
	PosterURL         *string    `json:"posterUrl"`
	VenueAddress      *string    `json:"venueAddress"`
	IsOnline          *bool      `json:"isOnline"`
	OnlineLink        *string    `json:"onlineLink"`
	StartAt           *time.Time `json:"startAt"`
	EndAt             *time.Time `json:"endAt"`
	RegistrationOpen  *time.Time `json:"registrationOpen"`
	RegistrationClose *time.Time `json:"registrationClose"`
	MaxCapacity       *int32     `json:"maxCapacity"`
	IsPublished       *bool      `json:"isPublished"`
}

// validateSchedule returns an error code when the event's times or capacity
// are inconsistent.
func validateSchedule(event model.Event) string {
	if event.StartAt.IsZero() {
		return "missing_start_at"
	}
	if event.EndAt != nil && event.EndAt.Before(event.StartAt) {
		return "invalid_schedule"
	}
	if event.RegistrationOpen != nil && event.RegistrationClose != nil && event.RegistrationClose.Before(*event.RegistrationOpen) {
		return "invalid_registration_window"
	}
	if event.MaxCapacity != nil && *event.MaxCapacity <= 0 {
		return "invalid_capacity"
	}
	if event.MaxCapacity != nil && *event.MaxCapacity < event.RegisteredCount {
		return "capacity_below_registered"
	}
	return ""
}

func parseEventFilter(r *http.Request, now time.Time) (model.EventFilter, string) {
	query := r.URL.Query()
	filter := model.EventFilter{
		Search: strings.TrimSpace(query.Get("search")),
		ClubID: strings.TrimSpace(query.Get("clubId")),
		Type:   model.EventType(strings.TrimSpace(query.Get("type"))),
		Sort:   model.EventSort(strings.TrimSpace(query.Get("sort"))),
		After:  now,
		Limit:  defaultEventLimit,
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return filter, "invalid_event_type"
	}
	switch filter.Sort {
	case "":
		filter.Sort = model.EventSortUpcoming
	case model.EventSortUpcoming, model.EventSortLatest, model.EventSortPopular:
	default:
		return filter, "invalid_sort"
	}
	if filter.ClubID != "" {
		if _, err := uuid.Parse(filter.ClubID); err != nil {
			return filter, "invalid_club_id"
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, "invalid_limit"
		}
		if limit > maxEventLimit {
			limit = maxEventLimit
		}
		filter.Limit = int32(limit)
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, "invalid_offset"
		}
		filter.Offset = int32(offset)
	}
	return filter, ""
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, code := parseEventFilter(r, s.now().UTC())
	if code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}
	events, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": newEventSummaryViews(events, false),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.ClubID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	eventType := model.EventType(strings.TrimSpace(strings.ToLower(req.EventType)))
	if eventType == "" {
		eventType = model.EventTypeOther
	}
	if !eventType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_event_type")
		return
	}

	actor := actorFromContext(r.Context())
	if _, err := s.ops.AuthorizeClub(r.Context(), actor, req.ClubID); err != nil {
		s.writeOpError(w, r, err)
		return
	}

	now := s.now().UTC()
	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}
	event := model.Event{
		ID:                uuid.NewString(),
		ClubID:            req.ClubID,
		Title:             req.Title,
		Description:       req.Description,
		EventType:         eventType,
		PosterURL:         req.PosterURL,
		VenueAddress:      req.VenueAddress,
		IsOnline:          req.IsOnline,
		OnlineLink:        req.OnlineLink,
		StartAt:           req.StartAt.UTC(),
		EndAt:             req.EndAt,
		RegistrationOpen:  req.RegistrationOpen,
		RegistrationClose: req.RegistrationClose,
		MaxCapacity:       req.MaxCapacity,
		IsPublished:       published,
		CreatedBy:         actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if code := validateSchedule(event); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	if err := s.store.CreateEvent(r.Context(), event); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.ops.Audit(r.Context(), actor.UserID, "event.created", "event", event.ID)
	writeJSON(w, http.StatusCreated, newEventView(event))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	if _, err := uuid.Parse(eventID); err != nil {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}
	event, err := s.store.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if !event.IsPublished {
		writeError(w, http.StatusNotFound, "event_not_found")
		return
	}
	writeJSON(w, http.StatusOK, newEventView(event))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	actor := actorFromContext(r.Context())
	event, err := s.ops.AuthorizeEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}

	patch := model.EventPatch{
		Description:       req.Description,
		PosterURL:         req.PosterURL,
		VenueAddress:      req.VenueAddress,
		IsOnline:          req.IsOnline,
		OnlineLink:        req.OnlineLink,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		RegistrationOpen:  req.RegistrationOpen,
		RegistrationClose: req.RegistrationClose,
		MaxCapacity:       req.MaxCapacity,
		IsPublished:       req.IsPublished,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "missing_fields")
			return
		}
		patch.Title = &title
	}
	if req.EventType != nil {
		eventType := model.EventType(strings.TrimSpace(strings.ToLower(*req.EventType)))
		if !eventType.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_event_type")
			return
		}
		patch.EventType = &eventType
	}
	if code := validateSchedule(applyPatch(event, patch)); code != "" {
		writeError(w, http.StatusBadRequest, code)
		return
	}

	updated, err := s.store.UpdateEvent(r.Context(), event.ID, patch, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "event_not_found")
			return
		case errors.Is(err, repository.ErrCapacityTooLow):
			writeError(w, http.StatusBadRequest, "capacity_below_registered")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.ops.Audit(r.Context(), actor.UserID, "event.updated", "event", event.ID)
	writeJSON(w, http.StatusOK, newEventView(updated))
}

// applyPatch previews the scheduling fields of an update for validation.
// Absent or null fields keep their stored value, so a PUT cannot clear an
// optional field such as endAt or maxCapacity.
func applyPatch(event model.Event, patch model.EventPatch) model.Event {
	if patch.StartAt != nil {
		event.StartAt = *patch.StartAt
	}
	if patch.EndAt != nil {
		event.EndAt = patch.EndAt
	}
	if patch.RegistrationOpen != nil {
		event.RegistrationOpen = patch.RegistrationOpen
	}
	if patch.RegistrationClose != nil {
		event.RegistrationClose = patch.RegistrationClose
	}
	if patch.MaxCapacity != nil {
		event.MaxCapacity = patch.MaxCapacity
	}
	return event
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	event, err := s.ops.AuthorizeEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if err := s.store.DeleteEvent(r.Context(), event.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.invalidateAnalytics(r.Context(), event.ID, event.ClubID)
	s.ops.Audit(r.Context(), actor.UserID, "event.deleted", "event", event.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChairpersonEvents(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	events, err := s.store.ListEventsByCreator(r.Context(), actor.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": newEventSummaryViews(events, true)})
}

func (s *Server) handleListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	event, err := s.ops.AuthorizeEvent(r.Context(), actor, chi.URLParam(r, "eventID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	attendees, err := s.store.ListEventAttendees(r.Context(), event.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	views := make([]attendeeView, 0, len(attendees))
	for _, attendee := range attendees {
		views = append(views, attendeeView{
			registrationView: newRegistrationView(attendee.Registration, false),
			FullName:         attendee.FullName,
			Email:            attendee.Email,
			RollNumber:       attendee.RollNumber,
			Branch:           attendee.Branch,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event":         newEventView(event),
		"registrations": views,
	})
}
