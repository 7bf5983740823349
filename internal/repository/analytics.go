package repository

import (
	"context"

	"campusevents/internal/model"
)

const countColumns = `
	COUNT(*),
	COUNT(*) FILTER (WHERE r.attendance_status = 'present'),
	COUNT(*) FILTER (WHERE r.attendance_status = 'absent'),
	COUNT(*) FILTER (WHERE r.attendance_status = 'late'),
	COUNT(*) FILTER (WHERE r.attendance_status = 'excused'),
	COUNT(*) FILTER (WHERE r.attendance_marked = false),
	COUNT(r.feedback_rating),
	AVG(r.feedback_rating)::float8`

// EventAttendanceCounts aggregates the event's non-cancelled registrations.
func (s *Store) EventAttendanceCounts(ctx context.Context, eventID string) (model.AttendanceCounts, error) {
	var counts model.AttendanceCounts
	err := s.pool.QueryRow(ctx, `
		SELECT `+countColumns+`
		FROM registrations r
		WHERE r.event_id = $1 AND r.status <> 'cancelled'
	`, eventID).Scan(countDest(&counts)...)
	return counts, translate(err)
}

// ClubAttendanceCounts aggregates non-cancelled registrations across all of
// the club's events.
func (s *Store) ClubAttendanceCounts(ctx context.Context, clubID string) (model.AttendanceCounts, error) {
	var counts model.AttendanceCounts
	err := s.pool.QueryRow(ctx, `
		SELECT `+countColumns+`
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE e.club_id = $1 AND r.status <> 'cancelled'
	`, clubID).Scan(countDest(&counts)...)
	return counts, translate(err)
}

func countDest(counts *model.AttendanceCounts) []any {
	return []any{
		&counts.Total,
		&counts.Present,
		&counts.Absent,
		&counts.Late,
		&counts.Excused,
		&counts.Pending,
		&counts.FeedbackCount,
		&counts.AverageRating,
	}
}
