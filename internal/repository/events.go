package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"campusevents/internal/model"
)

const eventColumns = `e.id, e.club_id, e.title, e.description, e.event_type, e.poster_url, e.venue_address, e.is_online, e.online_link,
	e.start_at, e.end_at, e.registration_open, e.registration_close, e.max_capacity, e.registered_count, e.is_published,
	e.created_by, e.created_at, e.updated_at`

const attendedCount = `(SELECT COUNT(*) FROM registrations r
	WHERE r.event_id = e.id AND r.status <> 'cancelled' AND r.attendance_status IN ('present', 'late'))::int4`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns user text into a substring ILIKE pattern in which % and _
// match themselves.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

var eventOrder = map[model.EventSort]string{
	model.EventSortUpcoming: `e.start_at ASC, e.id`,
	model.EventSortLatest:   `e.created_at DESC, e.id`,
	model.EventSortPopular:  `e.registered_count DESC, e.start_at ASC, e.id`,
}

func eventDest(event *model.Event, eventType *string) []any {
	return []any{
		&event.ID,
		&event.ClubID,
		&event.Title,
		&event.Description,
		eventType,
		&event.PosterURL,
		&event.VenueAddress,
		&event.IsOnline,
		&event.OnlineLink,
		&event.StartAt,
		&event.EndAt,
		&event.RegistrationOpen,
		&event.RegistrationClose,
		&event.MaxCapacity,
		&event.RegisteredCount,
		&event.IsPublished,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	}
}

func scanEvent(row pgx.Row) (model.Event, error) {
	var event model.Event
	var eventType string
	err := row.Scan(eventDest(&event, &eventType)...)
	event.EventType = model.EventType(eventType)
	return event, translate(err)
}

func scanEventSummary(row pgx.Row) (model.EventSummary, error) {
	var summary model.EventSummary
	var eventType string
	dest := append(eventDest(&summary.Event, &eventType), &summary.ClubName, &summary.AttendedCount)
	err := row.Scan(dest...)
	summary.EventType = model.EventType(eventType)
	return summary, translate(err)
}

func (s *Store) CreateEvent(ctx context.Context, event model.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, club_id, title, description, event_type, poster_url, venue_address, is_online, online_link,
			start_at, end_at, registration_open, registration_close, max_capacity, registered_count, is_published,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16, $17, $18)
	`, event.ID, event.ClubID, event.Title, event.Description, string(event.EventType), event.PosterURL, event.VenueAddress,
		event.IsOnline, event.OnlineLink, event.StartAt, event.EndAt, event.RegistrationOpen, event.RegistrationClose,
		event.MaxCapacity, event.IsPublished, event.CreatedBy, event.CreatedAt, event.UpdatedAt)
	return translate(err)
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (model.Event, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, eventID)
	return scanEvent(row)
}

func (s *Store) UpdateEvent(ctx context.Context, eventID string, patch model.EventPatch, updatedAt time.Time) (model.Event, error) {
	var eventType *string
	if patch.EventType != nil {
		value := string(*patch.EventType)
		eventType = &value
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE events e
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			event_type = COALESCE($4, event_type),
			poster_url = COALESCE($5, poster_url),
			venue_address = COALESCE($6, venue_address),
			is_online = COALESCE($7, is_online),
			online_link = COALESCE($8, online_link),
			start_at = COALESCE($9, start_at),
			end_at = COALESCE($10, end_at),
			registration_open = COALESCE($11, registration_open),
			registration_close = COALESCE($12, registration_close),
			max_capacity = COALESCE($13, max_capacity),
			is_published = COALESCE($14, is_published),
			updated_at = $15
		WHERE e.id = $1 AND ($13::integer IS NULL OR $13::integer >= e.registered_count)
		RETURNING `+eventColumns,
		eventID, patch.Title, patch.Description, eventType, patch.PosterURL, patch.VenueAddress, patch.IsOnline,
		patch.OnlineLink, patch.StartAt, patch.EndAt, patch.RegistrationOpen, patch.RegistrationClose, patch.MaxCapacity,
		patch.IsPublished, updatedAt)
	event, err := scanEvent(row)
	if errors.Is(err, ErrNotFound) && patch.MaxCapacity != nil {
		var registered int32
		if lookupErr := s.pool.QueryRow(ctx, `SELECT registered_count FROM events WHERE id = $1`, eventID).Scan(&registered); lookupErr == nil {
			return event, ErrCapacityTooLow
		}
	}
	return event, err
}

func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEvents returns published events starting at or after filter.After.
func (s *Store) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error) {
	order, ok := eventOrder[filter.Sort]
	if !ok {
		order = eventOrder[model.EventSortUpcoming]
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`, c.name, `+attendedCount+`
		FROM events e
		JOIN clubs c ON c.id = e.club_id
		WHERE e.is_published = true
			AND e.start_at >= $1
			AND ($2::text = '' OR e.title ILIKE $7 ESCAPE '\' OR e.description ILIKE $7 ESCAPE '\')
			AND ($3::text = '' OR e.club_id::text = $3)
			AND ($4::text = '' OR e.event_type = $4)
		ORDER BY `+order+`
		LIMIT $5 OFFSET $6
	`, filter.After, filter.Search, filter.ClubID, string(filter.Type), filter.Limit, filter.Offset, likePattern(filter.Search))
	if err != nil {
		return nil, err
	}
	return collectEventSummaries(rows)
}

// ListEventsByCreator returns every event created by userID, newest first.
func (s *Store) ListEventsByCreator(ctx context.Context, userID string) ([]model.EventSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`, c.name, `+attendedCount+`
		FROM events e
		JOIN clubs c ON c.id = e.club_id
		WHERE e.created_by = $1
		ORDER BY e.start_at DESC, e.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectEventSummaries(rows)
}

func collectEventSummaries(rows pgx.Rows) ([]model.EventSummary, error) {
	defer rows.Close()
	events := []model.EventSummary{}
	for rows.Next() {
		summary, err := scanEventSummary(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, summary)
	}
	return events, rows.Err()
}
