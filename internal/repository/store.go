package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campusevents/internal/model"
)

// Store is the PostgreSQL backed storage for users, clubs, events and
// registrations.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, role, roll_number, branch, year, phone, profile_picture_url, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&role,
		&user.RollNumber,
		&user.Branch,
		&user.Year,
		&user.Phone,
		&user.ProfilePictureURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	user.Role = model.Role(role)
	return user, translate(err)
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, role, roll_number, branch, year, phone, profile_picture_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, string(user.Role), user.RollNumber, user.Branch, user.Year, user.Phone, user.ProfilePictureURL, user.CreatedAt, user.UpdatedAt)
	return translate(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID returns the user together with their club memberships.
func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return user, err
	}
	user.ClubMemberships, err = s.listMemberships(ctx, userID)
	return user, err
}

func (s *Store) listMemberships(ctx context.Context, userID string) ([]model.ClubMembership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT club_id, role, joined_at
		FROM club_members
		WHERE user_id = $1
		ORDER BY joined_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []model.ClubMembership{}
	for rows.Next() {
		var membership model.ClubMembership
		if err := rows.Scan(&membership.ClubID, &membership.Role, &membership.JoinedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, membership)
	}
	return memberships, rows.Err()
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			roll_number = COALESCE($3, roll_number),
			branch = COALESCE($4, branch),
			year = COALESCE($5, year),
			phone = COALESCE($6, phone),
			profile_picture_url = COALESCE($7, profile_picture_url),
			updated_at = $8
		WHERE id = $1
		RETURNING `+userColumns,
		userID, patch.FullName, patch.RollNumber, patch.Branch, patch.Year, patch.Phone, patch.ProfilePictureURL, updatedAt)
	user, err := scanUser(row)
	if err != nil {
		return user, err
	}
	user.ClubMemberships, err = s.listMemberships(ctx, userID)
	return user, err
}

func (s *Store) UpdateUserRole(ctx context.Context, userID string, role model.Role, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, userID, string(role), updatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry model.AuditLog) error {
	var userID *string
	if entry.UserID != "" {
		userID = &entry.UserID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, userID, entry.Action, entry.EntityType, entry.EntityID, entry.CreatedAt)
	return translate(err)
}
