package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"campusevents/internal/db"
	"campusevents/internal/model"
)

const registrationColumns = `r.id, r.event_id, r.user_id, r.status, r.qr_token, r.qr_sealed, r.qr_data, r.qr_image,
	r.registered_at, r.cancelled_at, r.attendance_marked, r.attendance_status, r.attended_at,
	r.feedback_rating, r.feedback_comment, r.feedback_submitted_at,
	r.certificate_issued, r.certificate_url, r.certificate_number, r.certificate_issued_at`

type registrationRow struct {
	status            string
	attendanceStatus  *string
	feedbackRating    *int32
	feedbackComment   *string
	feedbackSubmitted *time.Time
	certificate       model.Certificate
}

func registrationDest(reg *model.Registration, raw *registrationRow) []any {
	return []any{
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&raw.status,
		&reg.QRToken,
		&reg.QRSealed,
		&reg.QRData,
		&reg.QRImage,
		&reg.RegisteredAt,
		&reg.CancelledAt,
		&reg.Attendance.IsMarked,
		&raw.attendanceStatus,
		&reg.Attendance.MarkedAt,
		&raw.feedbackRating,
		&raw.feedbackComment,
		&raw.feedbackSubmitted,
		&raw.certificate.IsIssued,
		&raw.certificate.URL,
		&raw.certificate.Number,
		&raw.certificate.IssuedAt,
	}
}

func (raw registrationRow) apply(reg *model.Registration) {
	reg.Status = model.RegistrationStatus(raw.status)
	if raw.attendanceStatus != nil {
		reg.Attendance.Status = model.AttendanceStatus(*raw.attendanceStatus)
	}
	if raw.feedbackRating != nil && raw.feedbackSubmitted != nil {
		reg.Feedback = &model.Feedback{
			Rating:      *raw.feedbackRating,
			Comment:     raw.feedbackComment,
			SubmittedAt: *raw.feedbackSubmitted,
		}
	}
	if raw.certificate.IsIssued {
		certificate := raw.certificate
		reg.Certificate = &certificate
	}
}

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var reg model.Registration
	var raw registrationRow
	if err := row.Scan(registrationDest(&reg, &raw)...); err != nil {
		return reg, translate(err)
	}
	raw.apply(&reg)
	return reg, nil
}

// GetRegistration returns the registration with its attendance history.
func (s *Store) GetRegistration(ctx context.Context, registrationID string) (model.Registration, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, registrationID)
	reg, err := scanRegistration(row)
	if err != nil {
		return reg, err
	}
	reg.Attendance.Logs, err = listAttendanceLogs(ctx, s.pool, reg.ID)
	return reg, err
}

// CreateRegistration inserts the registration and claims a seat on the event
// in one transaction. The insert runs first so a duplicate is reported ahead
// of a full event.
func (s *Store) CreateRegistration(ctx context.Context, reg model.Registration) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO registrations (id, event_id, user_id, status, qr_token, qr_sealed, qr_data, qr_image, registered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, reg.ID, reg.EventID, reg.UserID, string(reg.Status), reg.QRToken, reg.QRSealed, reg.QRData, reg.QRImage, reg.RegisteredAt); err != nil {
			return translate(err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE events
			SET registered_count = registered_count + 1
			WHERE id = $1 AND (max_capacity IS NULL OR registered_count < max_capacity)
		`, reg.EventID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrEventFull
		}
		return nil
	})
}

// CancelRegistration flips an active, unmarked registration to cancelled and
// releases its seat.
func (s *Store) CancelRegistration(ctx context.Context, registrationID string, cancelledAt time.Time) (model.Registration, error) {
	var reg model.Registration
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE registrations r
			SET status = 'cancelled', cancelled_at = $2
			WHERE r.id = $1 AND r.status <> 'cancelled' AND r.attendance_marked = false
			RETURNING `+registrationColumns,
			registrationID, cancelledAt)
		var err error
		reg, err = scanRegistration(row)
		if errors.Is(err, ErrNotFound) {
			return classifyUnchanged(ctx, tx, registrationID)
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE events
			SET registered_count = GREATEST(registered_count - 1, 0)
			WHERE id = $1
		`, reg.EventID)
		return err
	})
	return reg, err
}

// MarkAttendance sets the attendance latch and appends a log entry. Unless
// mark.Override is set, a registration that is already marked is left
// untouched and ErrAlreadyMarked is returned.
func (s *Store) MarkAttendance(ctx context.Context, mark model.MarkAttendance) (model.Registration, error) {
	var reg model.Registration
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE registrations r
			SET attendance_marked = true, attendance_status = $3, attended_at = $4, status = $5
			WHERE r.id = $1 AND r.event_id = $2 AND r.status <> 'cancelled'
				AND ($6::boolean OR r.attendance_marked = false)
			RETURNING `+registrationColumns,
			mark.RegistrationID, mark.EventID, string(mark.Status), mark.Log.MarkedAt, string(mark.RegistrationStatus), mark.Override)
		var err error
		reg, err = scanRegistration(row)
		if errors.Is(err, ErrNotFound) {
			return classifyUnchanged(ctx, tx, mark.RegistrationID)
		}
		if err != nil {
			return err
		}

		entry := mark.Log
		entry.RegistrationID = reg.ID
		entry.EventID = reg.EventID
		entry.UserID = reg.UserID
		if _, err := tx.Exec(ctx, `
			INSERT INTO attendance_logs (id, registration_id, event_id, user_id, marked_by, marked_at, status, latitude, longitude, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, entry.ID, entry.RegistrationID, entry.EventID, entry.UserID, entry.MarkedBy, entry.MarkedAt, string(entry.Status),
			entry.Latitude, entry.Longitude, entry.Notes); err != nil {
			return translate(err)
		}

		reg.Attendance.Logs, err = listAttendanceLogs(ctx, tx, reg.ID)
		return err
	})
	return reg, err
}

// classifyUnchanged explains why a conditional update matched no row.
func classifyUnchanged(ctx context.Context, tx pgx.Tx, registrationID string) error {
	var status string
	var marked bool
	err := tx.QueryRow(ctx, `SELECT status, attendance_marked FROM registrations WHERE id = $1`, registrationID).Scan(&status, &marked)
	if err != nil {
		return translate(err)
	}
	switch {
	case status == string(model.RegistrationCancelled):
		return ErrAlreadyCancelled
	case marked:
		return ErrAlreadyMarked
	default:
		return ErrNotFound
	}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const attendanceLogColumns = `id, registration_id, event_id, user_id, marked_by, marked_at, status, latitude, longitude, notes`

func listAttendanceLogs(ctx context.Context, q querier, registrationID string) ([]model.AttendanceLog, error) {
	rows, err := q.Query(ctx, `
		SELECT `+attendanceLogColumns+`
		FROM attendance_logs
		WHERE registration_id = $1
		ORDER BY marked_at, id
	`, registrationID)
	if err != nil {
		return nil, err
	}
	logs := []model.AttendanceLog{}
	err = collectAttendanceLogs(rows, func(entry model.AttendanceLog) {
		logs = append(logs, entry)
	})
	return logs, err
}

// attendanceLogsFor loads the history of several registrations in one query,
// keyed by registration id.
func attendanceLogsFor(ctx context.Context, q querier, registrationIDs []string) (map[string][]model.AttendanceLog, error) {
	byRegistration := make(map[string][]model.AttendanceLog, len(registrationIDs))
	if len(registrationIDs) == 0 {
		return byRegistration, nil
	}
	rows, err := q.Query(ctx, `
		SELECT `+attendanceLogColumns+`
		FROM attendance_logs
		WHERE registration_id = ANY($1::uuid[])
		ORDER BY marked_at, id
	`, registrationIDs)
	if err != nil {
		return nil, err
	}
	err = collectAttendanceLogs(rows, func(entry model.AttendanceLog) {
		byRegistration[entry.RegistrationID] = append(byRegistration[entry.RegistrationID], entry)
	})
	return byRegistration, err
}

func collectAttendanceLogs(rows pgx.Rows, add func(model.AttendanceLog)) error {
	defer rows.Close()
	for rows.Next() {
		var entry model.AttendanceLog
		var status string
		if err := rows.Scan(&entry.ID, &entry.RegistrationID, &entry.EventID, &entry.UserID, &entry.MarkedBy, &entry.MarkedAt,
			&status, &entry.Latitude, &entry.Longitude, &entry.Notes); err != nil {
			return err
		}
		entry.Status = model.AttendanceStatus(status)
		add(entry)
	}
	return rows.Err()
}

func (s *Store) SubmitFeedback(ctx context.Context, registrationID string, feedback model.Feedback) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE registrations
		SET feedback_rating = $2, feedback_comment = $3, feedback_submitted_at = $4
		WHERE id = $1 AND feedback_submitted_at IS NULL
	`, registrationID, feedback.Rating, feedback.Comment, feedback.SubmittedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.GetRegistration(ctx, registrationID); err != nil {
		return err
	}
	return ErrFeedbackExists
}

// ListUserRegistrations returns the user's non-cancelled registrations,
// optionally narrowed to one event.
func (s *Store) ListUserRegistrations(ctx context.Context, userID, eventID string) ([]model.Registration, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations r
		WHERE r.user_id = $1 AND r.status <> 'cancelled'
			AND ($2::text = '' OR r.event_id::text = $2)
		ORDER BY r.registered_at DESC, r.id
	`, userID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := []model.Registration{}
	ids := []string{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
		ids = append(ids, reg.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	logs, err := attendanceLogsFor(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range registrations {
		registrations[i].Attendance.Logs = logs[registrations[i].ID]
	}
	return registrations, nil
}

func (s *Store) ListEventAttendees(ctx context.Context, eventID string) ([]model.Attendee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+registrationColumns+`, u.full_name, u.email, u.roll_number, u.branch
		FROM registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1 AND r.status <> 'cancelled'
		ORDER BY r.registered_at, r.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendees := []model.Attendee{}
	ids := []string{}
	for rows.Next() {
		var attendee model.Attendee
		var raw registrationRow
		dest := append(registrationDest(&attendee.Registration, &raw),
			&attendee.FullName, &attendee.Email, &attendee.RollNumber, &attendee.Branch)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		raw.apply(&attendee.Registration)
		attendees = append(attendees, attendee)
		ids = append(ids, attendee.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	logs, err := attendanceLogsFor(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range attendees {
		attendees[i].Attendance.Logs = logs[attendees[i].ID]
	}
	return attendees, nil
}
