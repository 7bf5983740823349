package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"campusevents/internal/model"
)

const clubColumns = `c.id, c.name, c.description, c.logo_url, c.banner_url, c.website_url, c.email, c.phone, c.is_active,
	(SELECT COUNT(*) FROM club_members m WHERE m.club_id = c.id)::int4, c.created_at, c.updated_at`

func scanClub(row pgx.Row) (model.Club, error) {
	var club model.Club
	err := row.Scan(
		&club.ID,
		&club.Name,
		&club.Description,
		&club.LogoURL,
		&club.BannerURL,
		&club.WebsiteURL,
		&club.Email,
		&club.Phone,
		&club.IsActive,
		&club.MemberCount,
		&club.CreatedAt,
		&club.UpdatedAt,
	)
	return club, translate(err)
}

func (s *Store) CreateClub(ctx context.Context, club model.Club) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clubs (id, name, description, logo_url, banner_url, website_url, email, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, club.ID, club.Name, club.Description, club.LogoURL, club.BannerURL, club.WebsiteURL, club.Email, club.Phone, club.IsActive, club.CreatedAt, club.UpdatedAt)
	return translate(err)
}

func (s *Store) GetClub(ctx context.Context, clubID string) (model.Club, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clubColumns+` FROM clubs c WHERE c.id = $1`, clubID)
	return scanClub(row)
}

// ListClubs returns active clubs whose name matches search (case-insensitive).
func (s *Store) ListClubs(ctx context.Context, search string) ([]model.Club, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+clubColumns+`
		FROM clubs c
		WHERE c.is_active = true
			AND ($1::text = '' OR c.name ILIKE '%' || $1 || '%')
		ORDER BY c.name
	`, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := []model.Club{}
	for rows.Next() {
		club, err := scanClub(rows)
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}
	return clubs, rows.Err()
}

// AddClubMember inserts the membership or updates the member's role.
func (s *Store) AddClubMember(ctx context.Context, userID string, membership model.ClubMembership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO club_members (club_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (club_id, user_id) DO UPDATE SET role = EXCLUDED.role
	`, membership.ClubID, userID, membership.Role, membership.JoinedAt)
	return translate(err)
}

func (s *Store) IsClubChairperson(ctx context.Context, clubID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM club_members WHERE club_id = $1 AND user_id = $2 AND role = $3
		)
	`, clubID, userID, model.ClubRoleChairperson).Scan(&exists)
	return exists, err
}
