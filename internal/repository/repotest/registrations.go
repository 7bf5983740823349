package repotest

import (
	"context"
	"sort"
	"time"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

func (s *Store) GetRegistration(_ context.Context, registrationID string) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[registrationID]
	if !ok {
		return model.Registration{}, repository.ErrNotFound
	}
	return s.withLogs(reg), nil
}

// withLogs copies the stored attendance history onto reg.
func (s *Store) withLogs(reg model.Registration) model.Registration {
	if entries := s.logs[reg.ID]; len(entries) > 0 {
		reg.Attendance.Logs = append([]model.AttendanceLog(nil), entries...)
	}
	return reg
}

func (s *Store) CreateRegistration(_ context.Context, reg model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[reg.EventID]
	if !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[reg.UserID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range s.registrations {
		if existing.QRToken == reg.QRToken {
			return repository.ErrDuplicate
		}
		if existing.EventID == reg.EventID && existing.UserID == reg.UserID && existing.Status != model.RegistrationCancelled {
			return repository.ErrAlreadyRegistered
		}
	}
	if event.MaxCapacity != nil && event.RegisteredCount >= *event.MaxCapacity {
		return repository.ErrEventFull
	}
	event.RegisteredCount++
	s.events[event.ID] = event
	s.registrations[reg.ID] = reg
	return nil
}

func (s *Store) CancelRegistration(_ context.Context, registrationID string, cancelledAt time.Time) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[registrationID]
	if !ok {
		return model.Registration{}, repository.ErrNotFound
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Registration{}, repository.ErrAlreadyCancelled
	}
	if reg.Attendance.IsMarked {
		return model.Registration{}, repository.ErrAlreadyMarked
	}
	reg.Status = model.RegistrationCancelled
	reg.CancelledAt = &cancelledAt
	s.registrations[reg.ID] = reg

	if event, ok := s.events[reg.EventID]; ok {
		if event.RegisteredCount > 0 {
			event.RegisteredCount--
		}
		s.events[event.ID] = event
	}
	return reg, nil
}

func (s *Store) MarkAttendance(_ context.Context, mark model.MarkAttendance) (model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[mark.RegistrationID]
	if !ok || reg.EventID != mark.EventID {
		return model.Registration{}, repository.ErrNotFound
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Registration{}, repository.ErrAlreadyCancelled
	}
	if reg.Attendance.IsMarked && !mark.Override {
		return model.Registration{}, repository.ErrAlreadyMarked
	}

	markedAt := mark.Log.MarkedAt
	reg.Attendance.IsMarked = true
	reg.Attendance.Status = mark.Status
	reg.Attendance.MarkedAt = &markedAt
	reg.Status = mark.RegistrationStatus

	entry := mark.Log
	entry.RegistrationID = reg.ID
	entry.EventID = reg.EventID
	entry.UserID = reg.UserID
	s.logs[reg.ID] = append(s.logs[reg.ID], entry)

	s.registrations[reg.ID] = reg
	return s.withLogs(reg), nil
}

func (s *Store) SubmitFeedback(_ context.Context, registrationID string, feedback model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[registrationID]
	if !ok {
		return repository.ErrNotFound
	}
	if reg.Feedback != nil {
		return repository.ErrFeedbackExists
	}
	reg.Feedback = &feedback
	s.registrations[reg.ID] = reg
	return nil
}

func (s *Store) ListUserRegistrations(_ context.Context, userID, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	registrations := []model.Registration{}
	for _, reg := range s.registrations {
		if reg.UserID != userID || reg.Status == model.RegistrationCancelled {
			continue
		}
		if eventID != "" && reg.EventID != eventID {
			continue
		}
		registrations = append(registrations, s.withLogs(reg))
	}
	sort.Slice(registrations, func(i, j int) bool {
		return registrations[i].RegisteredAt.After(registrations[j].RegisteredAt)
	})
	return registrations, nil
}

func (s *Store) ListEventAttendees(_ context.Context, eventID string) ([]model.Attendee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attendees := []model.Attendee{}
	for _, reg := range s.registrations {
		if reg.EventID != eventID || reg.Status == model.RegistrationCancelled {
			continue
		}
		user := s.users[reg.UserID]
		attendees = append(attendees, model.Attendee{
			Registration: s.withLogs(reg),
			FullName:     user.FullName,
			Email:        user.Email,
			RollNumber:   user.RollNumber,
			Branch:       user.Branch,
		})
	}
	sort.Slice(attendees, func(i, j int) bool {
		return attendees[i].RegisteredAt.Before(attendees[j].RegisteredAt)
	})
	return attendees, nil
}

func (s *Store) EventAttendanceCounts(_ context.Context, eventID string) (model.AttendanceCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts(func(reg model.Registration) bool { return reg.EventID == eventID }), nil
}

func (s *Store) ClubAttendanceCounts(_ context.Context, clubID string) (model.AttendanceCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts(func(reg model.Registration) bool { return s.events[reg.EventID].ClubID == clubID }), nil
}

func (s *Store) counts(match func(model.Registration) bool) model.AttendanceCounts {
	var counts model.AttendanceCounts
	var ratingSum int64
	for _, reg := range s.registrations {
		if reg.Status == model.RegistrationCancelled || !match(reg) {
			continue
		}
		counts.Total++
		if !reg.Attendance.IsMarked {
			counts.Pending++
		}
		switch reg.Attendance.Status {
		case model.AttendancePresent:
			counts.Present++
		case model.AttendanceAbsent:
			counts.Absent++
		case model.AttendanceLate:
			counts.Late++
		case model.AttendanceExcused:
			counts.Excused++
		}
		if reg.Feedback != nil {
			counts.FeedbackCount++
			ratingSum += int64(reg.Feedback.Rating)
		}
	}
	if counts.FeedbackCount > 0 {
		average := float64(ratingSum) / float64(counts.FeedbackCount)
		counts.AverageRating = &average
	}
	return counts
}
