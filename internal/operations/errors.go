package operations

import "errors"

const (
	ErrInvalidID             = "invalid_id"
	ErrMissingFields         = "missing_fields"
	ErrEventNotFound         = "event_not_found"
	ErrClubNotFound          = "club_not_found"
	ErrRegistrationNotFound  = "registration_not_found"
	ErrRegistrationClosed    = "registration_closed"
	ErrAlreadyRegistered     = "already_registered"
	ErrEventFull             = "event_full"
	ErrQREventMismatch       = "qr_event_mismatch"
	ErrEventMismatch         = "event_mismatch"
	ErrInvalidQR             = "invalid_qr"
	ErrRegistrationCancelled = "registration_cancelled"
	ErrDuplicateScan         = "duplicate_scan"
	ErrInvalidStatus         = "invalid_status"
	ErrAlreadyCancelled      = "already_cancelled"
	ErrAttendanceMarked      = "attendance_marked"
	ErrInvalidRating         = "invalid_rating"
	ErrAttendanceRequired    = "attendance_required"
	ErrFeedbackExists        = "feedback_exists"
	ErrNotOwner              = "not_owner"
	ErrNotEventOwner         = "not_event_owner"
	ErrNotClubChairperson    = "not_club_chairperson"
	ErrChairpersonOnly       = "chairperson_only"
	ErrServerError           = "server_error"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	KindServer
)

// Error is a workflow failure with a machine-readable code. Err keeps the
// underlying cause of server errors for logging.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validation(code string) error { return &Error{Kind: KindValidation, Code: code} }
func forbidden(code string) error  { return &Error{Kind: KindForbidden, Code: code} }
func notFound(code string) error   { return &Error{Kind: KindNotFound, Code: code} }
func conflict(code string) error   { return &Error{Kind: KindConflict, Code: code} }

func serverError(err error) error {
	return &Error{Kind: KindServer, Code: ErrServerError, Err: err}
}

// AsError unwraps err into an *Error, treating anything else as a server error.
func AsError(err error) *Error {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr
	}
	return &Error{Kind: KindServer, Code: ErrServerError, Err: err}
}
