// Package repotest provides an in-memory store with the same semantics and
// sentinel errors as the PostgreSQL repository.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

type Store struct {
	mu            sync.Mutex
	users         map[string]model.User
	clubs         map[string]model.Club
	members       map[string]map[string]model.ClubMembership
	events        map[string]model.Event
	registrations map[string]model.Registration
	logs          map[string][]model.AttendanceLog
	audit         []model.AuditLog
}

func NewStore() *Store {
	return &Store{
		users:         map[string]model.User{},
		clubs:         map[string]model.Club{},
		members:       map[string]map[string]model.ClubMembership{},
		events:        map[string]model.Event{},
		registrations: map[string]model.Registration{},
		logs:          map[string][]model.AttendanceLog{},
	}
}

func (s *Store) CreateUser(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	if _, ok := s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	user.ClubMemberships = nil
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, userID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userWithMemberships(userID)
}

func (s *Store) userWithMemberships(userID string) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	user.ClubMemberships = []model.ClubMembership{}
	for _, members := range s.members {
		if membership, ok := members[userID]; ok {
			user.ClubMemberships = append(user.ClubMemberships, membership)
		}
	}
	sort.Slice(user.ClubMemberships, func(i, j int) bool {
		return user.ClubMemberships[i].JoinedAt.Before(user.ClubMemberships[j].JoinedAt)
	})
	return user, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.RollNumber != nil {
		user.RollNumber = patch.RollNumber
	}
	if patch.Branch != nil {
		user.Branch = patch.Branch
	}
	if patch.Year != nil {
		user.Year = patch.Year
	}
	if patch.Phone != nil {
		user.Phone = patch.Phone
	}
	if patch.ProfilePictureURL != nil {
		user.ProfilePictureURL = patch.ProfilePictureURL
	}
	user.UpdatedAt = updatedAt
	s.users[userID] = user
	return s.userWithMemberships(userID)
}

func (s *Store) UpdateUserRole(_ context.Context, userID string, role model.Role, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = updatedAt
	s.users[userID] = user
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry model.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

// AuditLogs returns a copy of the recorded audit entries.
func (s *Store) AuditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.audit...)
}

func (s *Store) CreateClub(_ context.Context, club model.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clubs {
		if existing.Name == club.Name {
			return repository.ErrDuplicate
		}
	}
	s.clubs[club.ID] = club
	return nil
}

func (s *Store) GetClub(_ context.Context, clubID string) (model.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	club, ok := s.clubs[clubID]
	if !ok {
		return model.Club{}, repository.ErrNotFound
	}
	club.MemberCount = int32(len(s.members[clubID]))
	return club, nil
}

func (s *Store) ListClubs(_ context.Context, search string) ([]model.Club, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(search)
	clubs := []model.Club{}
	for _, club := range s.clubs {
		if !club.IsActive || !strings.Contains(strings.ToLower(club.Name), needle) {
			continue
		}
		club.MemberCount = int32(len(s.members[club.ID]))
		clubs = append(clubs, club)
	}
	sort.Slice(clubs, func(i, j int) bool { return clubs[i].Name < clubs[j].Name })
	return clubs, nil
}

func (s *Store) AddClubMember(_ context.Context, userID string, membership model.ClubMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clubs[membership.ClubID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	members := s.members[membership.ClubID]
	if members == nil {
		members = map[string]model.ClubMembership{}
		s.members[membership.ClubID] = members
	}
	if existing, ok := members[userID]; ok {
		existing.Role = membership.Role
		members[userID] = existing
		return nil
	}
	members[userID] = membership
	return nil
}

func (s *Store) IsClubChairperson(_ context.Context, clubID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	membership, ok := s.members[clubID][userID]
	return ok && membership.Role == model.ClubRoleChairperson, nil
}
