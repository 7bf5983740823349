package operations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"campusevents/internal/crypto"
	"campusevents/internal/model"
	"campusevents/internal/qr"
	"campusevents/internal/repository"
)

type ScanRequest struct {
	QRData    string
	EventID   string
	Latitude  *float64
	Longitude *float64
}

type ManualRequest struct {
	RegistrationID string
	EventID        string
	Status         model.AttendanceStatus
	Notes          *string
}

// scanned is what a QR scan identifies: either the JSON payload or the
// binding inside a sealed token.
type scanned struct {
	registrationID string
	eventID        string
	token          string
	userID         string
}

func (s *Service) parseScan(raw string) (scanned, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		payload, err := qr.ParsePayload(raw)
		if err != nil || payload.Token == "" {
			return scanned{}, validation(ErrInvalidQR)
		}
		return scanned{registrationID: payload.RegistrationID, eventID: payload.EventID, token: payload.Token}, nil
	}
	binding, err := s.issuer.Open(raw)
	if err != nil || binding.UserID == "" {
		return scanned{}, validation(ErrInvalidQR)
	}
	return scanned{registrationID: binding.RegistrationID, userID: binding.UserID}, nil
}

// Scan marks the scanned registration present. The latch is one-way: a
// second scan fails with duplicate_scan and changes nothing.
func (s *Service) Scan(ctx context.Context, actor Actor, req ScanRequest) (model.Registration, error) {
	if req.QRData == "" || req.EventID == "" {
		return model.Registration{}, validation(ErrMissingFields)
	}
	// Ownership is checked before the registration is looked up.
	if _, err := s.AuthorizeEvent(ctx, actor, req.EventID); err != nil {
		return model.Registration{}, err
	}
	code, err := s.parseScan(req.QRData)
	if err != nil {
		return model.Registration{}, err
	}
	if _, err := uuid.Parse(code.registrationID); err != nil {
		return model.Registration{}, validation(ErrInvalidQR)
	}
	reg, err := s.loadRegistration(ctx, code.registrationID)
	if err != nil {
		return model.Registration{}, err
	}
	if reg.EventID != req.EventID || (code.eventID != "" && code.eventID != req.EventID) {
		return model.Registration{}, validation(ErrQREventMismatch)
	}
	if code.token != "" && !crypto.TokensEqual(code.token, reg.QRToken) {
		return model.Registration{}, validation(ErrInvalidQR)
	}
	if code.userID != "" && code.userID != reg.UserID {
		return model.Registration{}, validation(ErrInvalidQR)
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Registration{}, conflict(ErrRegistrationCancelled)
	}

	marked, err := s.mark(ctx, actor, reg, model.AttendancePresent, false, req.Latitude, req.Longitude, nil)
	if err != nil {
		return model.Registration{}, markError(err)
	}
	s.Audit(ctx, actor.UserID, "attendance.scanned", "registration", reg.ID)
	return marked, nil
}

// ManualMark records any attendance status for a registration, replacing an
// existing mark.
func (s *Service) ManualMark(ctx context.Context, actor Actor, req ManualRequest) (model.Registration, error) {
	if req.RegistrationID == "" || req.EventID == "" {
		return model.Registration{}, validation(ErrMissingFields)
	}
	if !req.Status.Valid() {
		return model.Registration{}, validation(ErrInvalidStatus)
	}
	if _, err := s.AuthorizeEvent(ctx, actor, req.EventID); err != nil {
		return model.Registration{}, err
	}
	reg, err := s.loadRegistration(ctx, req.RegistrationID)
	if err != nil {
		return model.Registration{}, err
	}
	if reg.EventID != req.EventID {
		return model.Registration{}, validation(ErrEventMismatch)
	}
	if reg.Status == model.RegistrationCancelled {
		return model.Registration{}, conflict(ErrRegistrationCancelled)
	}

	marked, err := s.mark(ctx, actor, reg, req.Status, true, nil, nil, req.Notes)
	if err != nil {
		return model.Registration{}, markError(err)
	}
	s.Audit(ctx, actor.UserID, "attendance.marked", "registration", reg.ID)
	return marked, nil
}

func (s *Service) mark(ctx context.Context, actor Actor, reg model.Registration, status model.AttendanceStatus, override bool, lat, long *float64, notes *string) (model.Registration, error) {
	registrationStatus := model.RegistrationRegistered
	if status.Attended() {
		registrationStatus = model.RegistrationAttended
	}
	return s.store.MarkAttendance(ctx, model.MarkAttendance{
		RegistrationID:     reg.ID,
		EventID:            reg.EventID,
		Status:             status,
		RegistrationStatus: registrationStatus,
		Override:           override,
		Log: model.AttendanceLog{
			ID:        uuid.NewString(),
			MarkedBy:  actor.UserID,
			MarkedAt:  s.now().UTC(),
			Status:    status,
			Latitude:  lat,
			Longitude: long,
			Notes:     notes,
		},
	})
}

func markError(err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return conflict(ErrRegistrationCancelled)
	case errors.Is(err, repository.ErrAlreadyMarked):
		return conflict(ErrDuplicateScan)
	case errors.Is(err, repository.ErrNotFound):
		return notFound(ErrRegistrationNotFound)
	default:
		return serverError(err)
	}
}
