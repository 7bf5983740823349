package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrDuplicate         = errors.New("duplicate record")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrEventFull         = errors.New("event is full")
	ErrAlreadyMarked     = errors.New("attendance already marked")
	ErrAlreadyCancelled  = errors.New("registration already cancelled")
	ErrFeedbackExists    = errors.New("feedback already submitted")
	ErrCapacityTooLow    = errors.New("capacity below registered count")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		switch pgErr.ConstraintName {
		case "registrations_active_event_user_key":
			return ErrAlreadyRegistered
		case "users_email_key":
			return ErrEmailTaken
		default:
			return ErrDuplicate
		}
	case foreignKeyViolation:
		return ErrNotFound
	}
	return err
}
