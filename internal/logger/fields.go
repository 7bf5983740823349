package logger

// Standard field names for consistent logging.
const (
	FieldService        = "service"
	FieldOperation      = "operation"
	FieldError          = "error"
	FieldUserID         = "user_id"
	FieldEventID        = "event_id"
	FieldRegistrationID = "registration_id"
	FieldRequestID      = "request_id"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatus         = "status"
	FieldDuration       = "duration"
)
