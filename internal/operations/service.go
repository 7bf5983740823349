package operations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusevents/internal/logger"
	"campusevents/internal/model"
	"campusevents/internal/qr"
	"campusevents/internal/repository"
)

// Store is the storage the workflows need.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (model.Event, error)
	GetClub(ctx context.Context, clubID string) (model.Club, error)
	IsClubChairperson(ctx context.Context, clubID, userID string) (bool, error)
	GetRegistration(ctx context.Context, registrationID string) (model.Registration, error)
	CreateRegistration(ctx context.Context, reg model.Registration) error
	CancelRegistration(ctx context.Context, registrationID string, cancelledAt time.Time) (model.Registration, error)
	MarkAttendance(ctx context.Context, mark model.MarkAttendance) (model.Registration, error)
	SubmitFeedback(ctx context.Context, registrationID string, feedback model.Feedback) error
	EventAttendanceCounts(ctx context.Context, eventID string) (model.AttendanceCounts, error)
	ClubAttendanceCounts(ctx context.Context, clubID string) (model.AttendanceCounts, error)
	CreateAuditLog(ctx context.Context, entry model.AuditLog) error
}

// Actor is the authenticated caller of a workflow.
type Actor struct {
	UserID string
	Role   model.Role
}

type Service struct {
	store  Store
	issuer *qr.Issuer
	log    *zap.Logger
	now    func() time.Time
}

func NewService(store Store, issuer *qr.Issuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, issuer: issuer, log: log, now: time.Now}
}

// AuthorizeEvent loads the event and checks that actor may manage it: admins
// always, chairpersons when they created it or chair its club.
func (s *Service) AuthorizeEvent(ctx context.Context, actor Actor, eventID string) (model.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return model.Event{}, notFound(ErrEventNotFound)
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, notFound(ErrEventNotFound)
		}
		return model.Event{}, serverError(err)
	}
	switch actor.Role {
	case model.RoleAdmin:
		return event, nil
	case model.RoleChairperson:
	default:
		return model.Event{}, forbidden(ErrChairpersonOnly)
	}
	if event.CreatedBy == actor.UserID {
		return event, nil
	}
	ok, err := s.store.IsClubChairperson(ctx, event.ClubID, actor.UserID)
	if err != nil {
		return model.Event{}, serverError(err)
	}
	if !ok {
		return model.Event{}, forbidden(ErrNotEventOwner)
	}
	return event, nil
}

// AuthorizeClub checks that actor may manage the club's events.
func (s *Service) AuthorizeClub(ctx context.Context, actor Actor, clubID string) (model.Club, error) {
	if _, err := uuid.Parse(clubID); err != nil {
		return model.Club{}, notFound(ErrClubNotFound)
	}
	club, err := s.store.GetClub(ctx, clubID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Club{}, notFound(ErrClubNotFound)
		}
		return model.Club{}, serverError(err)
	}
	switch actor.Role {
	case model.RoleAdmin:
		return club, nil
	case model.RoleChairperson:
	default:
		return model.Club{}, forbidden(ErrChairpersonOnly)
	}
	ok, err := s.store.IsClubChairperson(ctx, clubID, actor.UserID)
	if err != nil {
		return model.Club{}, serverError(err)
	}
	if !ok {
		return model.Club{}, forbidden(ErrNotClubChairperson)
	}
	return club, nil
}

func (s *Service) loadRegistration(ctx context.Context, registrationID string) (model.Registration, error) {
	if _, err := uuid.Parse(registrationID); err != nil {
		return model.Registration{}, notFound(ErrRegistrationNotFound)
	}
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Registration{}, notFound(ErrRegistrationNotFound)
		}
		return model.Registration{}, serverError(err)
	}
	return reg, nil
}

// Audit records action best-effort; a failed write is logged and dropped.
func (s *Service) Audit(ctx context.Context, userID, action, entityType, entityID string) {
	entry := model.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("audit log write failed",
			zap.String(logger.FieldOperation, action),
			zap.String(logger.FieldUserID, userID),
			zap.Error(err),
		)
	}
}
