package operations

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

// Register claims a seat on a published event for the actor and issues the
// registration's QR credential.
func (s *Service) Register(ctx context.Context, actor Actor, eventID string) (model.Registration, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return model.Registration{}, notFound(ErrEventNotFound)
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Registration{}, notFound(ErrEventNotFound)
		}
		return model.Registration{}, serverError(err)
	}
	if !event.IsPublished {
		return model.Registration{}, notFound(ErrEventNotFound)
	}
	now := s.now().UTC()
	if !event.RegistrationOpenAt(now) {
		return model.Registration{}, validation(ErrRegistrationClosed)
	}

	registrationID := uuid.NewString()
	code, err := s.issuer.Issue(registrationID, event.ID, actor.UserID)
	if err != nil {
		return model.Registration{}, serverError(err)
	}
	reg := model.Registration{
		ID:           registrationID,
		EventID:      event.ID,
		UserID:       actor.UserID,
		Status:       model.RegistrationRegistered,
		QRToken:      code.Payload.Token,
		QRSealed:     code.Sealed,
		QRData:       code.Data,
		QRImage:      code.Image,
		RegisteredAt: now,
	}

	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return model.Registration{}, conflict(ErrAlreadyRegistered)
		case errors.Is(err, repository.ErrEventFull):
			return model.Registration{}, conflict(ErrEventFull)
		case errors.Is(err, repository.ErrNotFound):
			return model.Registration{}, notFound(ErrEventNotFound)
		default:
			return model.Registration{}, serverError(err)
		}
	}

	s.Audit(ctx, actor.UserID, "registration.created", "registration", reg.ID)
	return reg, nil
}

// Cancel releases the actor's own registration.
func (s *Service) Cancel(ctx context.Context, actor Actor, registrationID string) (model.Registration, error) {
	reg, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return model.Registration{}, err
	}
	if reg.UserID != actor.UserID {
		return model.Registration{}, forbidden(ErrNotOwner)
	}

	cancelled, err := s.store.CancelRegistration(ctx, reg.ID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyCancelled):
			return model.Registration{}, conflict(ErrAlreadyCancelled)
		case errors.Is(err, repository.ErrAlreadyMarked):
			return model.Registration{}, conflict(ErrAttendanceMarked)
		case errors.Is(err, repository.ErrNotFound):
			return model.Registration{}, notFound(ErrRegistrationNotFound)
		default:
			return model.Registration{}, serverError(err)
		}
	}

	s.Audit(ctx, actor.UserID, "registration.cancelled", "registration", reg.ID)
	return cancelled, nil
}

// QRCode returns the actor's own registration so its credential can be shown
// again.
func (s *Service) QRCode(ctx context.Context, actor Actor, registrationID string) (model.Registration, error) {
	reg, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return model.Registration{}, err
	}
	if reg.UserID != actor.UserID {
		return model.Registration{}, forbidden(ErrNotOwner)
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Registration{}, conflict(ErrRegistrationCancelled)
	}
	return reg, nil
}

type FeedbackRequest struct {
	RegistrationID string
	Rating         int32
	Comment        *string
}

// SubmitFeedback stores the actor's rating once attendance has been recorded
// as present or late.
func (s *Service) SubmitFeedback(ctx context.Context, actor Actor, req FeedbackRequest) (model.Feedback, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return model.Feedback{}, validation(ErrInvalidRating)
	}
	reg, err := s.loadRegistration(ctx, req.RegistrationID)
	if err != nil {
		return model.Feedback{}, err
	}
	if reg.UserID != actor.UserID {
		return model.Feedback{}, forbidden(ErrNotOwner)
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Feedback{}, conflict(ErrRegistrationCancelled)
	}
	if !reg.Attendance.IsMarked || !reg.Attendance.Status.Attended() {
		return model.Feedback{}, validation(ErrAttendanceRequired)
	}
	if reg.Feedback != nil {
		return model.Feedback{}, conflict(ErrFeedbackExists)
	}

	feedback := model.Feedback{Rating: req.Rating, Comment: req.Comment, SubmittedAt: s.now().UTC()}
	if err := s.store.SubmitFeedback(ctx, reg.ID, feedback); err != nil {
		if errors.Is(err, repository.ErrFeedbackExists) {
			return model.Feedback{}, conflict(ErrFeedbackExists)
		}
		return model.Feedback{}, serverError(err)
	}
	return feedback, nil
}
