package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusevents/internal/auth"
	"campusevents/internal/crypto"
	"campusevents/internal/logger"
	"campusevents/internal/model"
	"campusevents/internal/repository"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordLength = 72
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	FullName   string  `json:"fullName"`
	RollNumber *string `json:"rollNumber"`
	Branch     *string `json:"branch"`
	Year       *int32  `json:"year"`
	Phone      *string `json:"phone"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	user, err = s.store.GetUserByID(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writeAuth(w, r, http.StatusOK, user)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password_too_short")
		return
	}
	if len(req.Password) > maxPasswordLength {
		writeError(w, http.StatusBadRequest, "password_too_long")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         model.RoleStudent,
		RollNumber:   req.RollNumber,
		Branch:       req.Branch,
		Year:         req.Year,
		Phone:        req.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken")
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.ops.Audit(r.Context(), user.ID, "user.signup", "user", user.ID)
	user.ClubMemberships = []model.ClubMembership{}
	s.writeAuth(w, r, http.StatusCreated, user)
}

func (s *Server) writeAuth(w http.ResponseWriter, r *http.Request, status int, user model.User) {
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: newUserView(user)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

type profileRequest struct {
	FullName          *string `json:"fullName"`
	RollNumber        *string `json:"rollNumber"`
	Branch            *string `json:"branch"`
	Year              *int32  `json:"year"`
	Phone             *string `json:"phone"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		if trimmed == "" {
			writeError(w, http.StatusBadRequest, "invalid_full_name")
			return
		}
		req.FullName = &trimmed
	}
	if req.Year != nil && (*req.Year < 1 || *req.Year > 6) {
		writeError(w, http.StatusBadRequest, "invalid_year")
		return
	}

	claims := claimsFromContext(r.Context())
	user, err := s.store.UpdateProfile(r.Context(), claims.UserID, model.ProfilePatch{
		FullName:          req.FullName,
		RollNumber:        req.RollNumber,
		Branch:            req.Branch,
		Year:              req.Year,
		Phone:             req.Phone,
		ProfilePictureURL: req.ProfilePictureURL,
	}, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	role := model.Role(strings.TrimSpace(strings.ToLower(req.Role)))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	if err := s.store.UpdateUserRole(r.Context(), userID, role, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	admin := claimsFromContext(r.Context())
	s.log.Info("user role changed",
		zap.String(logger.FieldUserID, userID),
		zap.String("role", string(role)),
		zap.String("changed_by", admin.UserID),
	)
	s.ops.Audit(r.Context(), admin.UserID, "user.role_changed", "user", userID)
	writeJSON(w, http.StatusOK, map[string]string{"id": userID, "role": string(role)})
}
