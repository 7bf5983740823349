package repotest

import (
	"context"
	"sort"
	"strings"
	"time"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

func (s *Store) CreateEvent(_ context.Context, event model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clubs[event.ClubID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.events[event.ID]; ok {
		return repository.ErrDuplicate
	}
	event.RegisteredCount = 0
	s.events[event.ID] = event
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return event, nil
}

func (s *Store) UpdateEvent(_ context.Context, eventID string, patch model.EventPatch, updatedAt time.Time) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = patch.Description
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.PosterURL != nil {
		event.PosterURL = patch.PosterURL
	}
	if patch.VenueAddress != nil {
		event.VenueAddress = patch.VenueAddress
	}
	if patch.IsOnline != nil {
		event.IsOnline = *patch.IsOnline
	}
	if patch.OnlineLink != nil {
		event.OnlineLink = patch.OnlineLink
	}
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
		if *patch.MaxCapacity < event.RegisteredCount {
			return model.Event{}, repository.ErrCapacityTooLow
		}
		event.MaxCapacity = patch.MaxCapacity
	}
	if patch.IsPublished != nil {
		event.IsPublished = *patch.IsPublished
	}
	event.UpdatedAt = updatedAt
	s.events[eventID] = event
	return event, nil
}

func (s *Store) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.events, eventID)
	for id, reg := range s.registrations {
		if reg.EventID == eventID {
			delete(s.registrations, id)
			delete(s.logs, id)
		}
	}
	return nil
}

func (s *Store) ListEvents(_ context.Context, filter model.EventFilter) ([]model.EventSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(filter.Search)
	events := []model.EventSummary{}
	for _, event := range s.events {
		if !event.IsPublished || event.StartAt.Before(filter.After) {
			continue
		}
		if filter.ClubID != "" && event.ClubID != filter.ClubID {
			continue
		}
		if filter.Type != "" && event.EventType != filter.Type {
			continue
		}
		if search != "" && !matchesSearch(event, search) {
			continue
		}
		events = append(events, s.summary(event))
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch filter.Sort {
		case model.EventSortLatest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case model.EventSortPopular:
			if a.RegisteredCount != b.RegisteredCount {
				return a.RegisteredCount > b.RegisteredCount
			}
			if !a.StartAt.Equal(b.StartAt) {
				return a.StartAt.Before(b.StartAt)
			}
		default:
			if !a.StartAt.Equal(b.StartAt) {
				return a.StartAt.Before(b.StartAt)
			}
		}
		return a.ID < b.ID
	})
	return page(events, filter.Offset, filter.Limit), nil
}

func (s *Store) ListEventsByCreator(_ context.Context, userID string) ([]model.EventSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := []model.EventSummary{}
	for _, event := range s.events {
		if event.CreatedBy == userID {
			events = append(events, s.summary(event))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartAt.Equal(events[j].StartAt) {
			return events[i].StartAt.After(events[j].StartAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

func (s *Store) summary(event model.Event) model.EventSummary {
	summary := model.EventSummary{Event: event, ClubName: s.clubs[event.ClubID].Name}
	for _, reg := range s.registrations {
		if reg.EventID == event.ID && reg.Status != model.RegistrationCancelled && reg.Attendance.Status.Attended() {
			summary.AttendedCount++
		}
	}
	return summary
}

func matchesSearch(event model.Event, search string) bool {
	if strings.Contains(strings.ToLower(event.Title), search) {
		return true
	}
	return event.Description != nil && strings.Contains(strings.ToLower(*event.Description), search)
}

func page(events []model.EventSummary, offset, limit int32) []model.EventSummary {
	if int(offset) >= len(events) {
		return []model.EventSummary{}
	}
	events = events[offset:]
	if limit > 0 && int(limit) < len(events) {
		events = events[:limit]
	}
	return events
}
