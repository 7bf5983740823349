package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campusevents/internal/model"
	"campusevents/internal/repository"
)

type clubRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logoUrl"`
	BannerURL   *string `json:"bannerUrl"`
	WebsiteURL  *string `json:"websiteUrl"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

type memberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

func (s *Server) handleListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := s.store.ListClubs(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	views := make([]clubView, 0, len(clubs))
	for _, club := range clubs {
		views = append(views, newClubView(club))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clubs": views})
}

func (s *Server) handleCreateClub(w http.ResponseWriter, r *http.Request) {
	var req clubRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	now := s.now().UTC()
	club := model.Club{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		BannerURL:   req.BannerURL,
		WebsiteURL:  req.WebsiteURL,
		Email:       req.Email,
		Phone:       req.Phone,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateClub(r.Context(), club); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "club_exists")
			return
		}
		s.serverError(w, r, err)
		return
	}
	actor := actorFromContext(r.Context())
	s.ops.Audit(r.Context(), actor.UserID, "club.created", "club", club.ID)
	writeJSON(w, http.StatusCreated, newClubView(club))
}

func (s *Server) handleAddClubMember(w http.ResponseWriter, r *http.Request) {
	clubID := chi.URLParam(r, "clubID")
	if _, err := uuid.Parse(clubID); err != nil {
		writeError(w, http.StatusNotFound, "club_not_found")
		return
	}
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id")
		return
	}
	role := strings.TrimSpace(strings.ToLower(req.Role))
	if role == "" {
		role = model.ClubRoleMember
	}
	if !model.ValidClubRole(role) {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	membership := model.ClubMembership{ClubID: clubID, Role: role, JoinedAt: s.now().UTC()}
	if err := s.store.AddClubMember(r.Context(), req.UserID, membership); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "club_or_user_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	actor := actorFromContext(r.Context())
	s.ops.Audit(r.Context(), actor.UserID, "club.member_added", "club", clubID)
	writeJSON(w, http.StatusCreated, map[string]string{"clubId": clubID, "userId": req.UserID, "role": role})
}
