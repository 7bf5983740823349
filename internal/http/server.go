package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campusevents/internal/config"
	"campusevents/internal/mail"
	"campusevents/internal/model"
	"campusevents/internal/operations"
)

// Store is everything the handlers read or write directly, on top of what the
// workflows need.
type Store interface {
	operations.Store

	CreateUser(ctx context.Context, user model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) (model.User, error)
	UpdateUserRole(ctx context.Context, userID string, role model.Role, updatedAt time.Time) error

	CreateClub(ctx context.Context, club model.Club) error
	ListClubs(ctx context.Context, search string) ([]model.Club, error)
	AddClubMember(ctx context.Context, userID string, membership model.ClubMembership) error

	CreateEvent(ctx context.Context, event model.Event) error
	UpdateEvent(ctx context.Context, eventID string, patch model.EventPatch, updatedAt time.Time) (model.Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context, filter model.EventFilter) ([]model.EventSummary, error)
	ListEventsByCreator(ctx context.Context, userID string) ([]model.EventSummary, error)

	ListUserRegistrations(ctx context.Context, userID, eventID string) ([]model.Registration, error)
	ListEventAttendees(ctx context.Context, eventID string) ([]model.Attendee, error)
}

type Server struct {
	cfg    config.Config
	store  Store
	ops    *operations.Service
	redis  *redis.Client
	mailer mail.Mailer
	log    *zap.Logger
	now    func() time.Time
}

func NewServer(cfg config.Config, store Store, ops *operations.Service, redisClient *redis.Client, mailer mail.Mailer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if mailer == nil {
		mailer = mail.Nop{Log: log}
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		ops:    ops,
		redis:  redisClient,
		mailer: mailer,
		log:    log,
		now:    time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", s.handleLogin)
	r.Post("/signup", s.handleSignup)
	r.With(s.authMiddleware).Get("/me", s.handleGetMe)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", s.handleListEvents)
		r.With(s.authMiddleware, s.requireRole(model.RoleChairperson, model.RoleAdmin)).Post("/", s.handleCreateEvent)
		r.Get("/{eventID}", s.handleGetEvent)
		r.With(s.authMiddleware, s.requireRole(model.RoleChairperson, model.RoleAdmin)).Put("/{eventID}", s.handleUpdateEvent)
		r.With(s.authMiddleware, s.requireRole(model.RoleChairperson, model.RoleAdmin)).Delete("/{eventID}", s.handleDeleteEvent)
		r.With(s.authMiddleware).Post("/{eventID}/register", s.handleRegister)
		r.With(s.authMiddleware).Post("/{eventID}/register/confirm", s.handleConfirmRegistration)
	})

	r.Route("/registrations/{registrationID}", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/cancel", s.handleCancelRegistration)
		r.Get("/qr", s.handleGetQRCode)
		r.Post("/feedback", s.handleSubmitFeedback)
	})
	r.With(s.authMiddleware).Get("/students/registrations", s.handleListMyRegistrations)

	r.Route("/chairperson", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleChairperson, model.RoleAdmin))
		r.Get("/events", s.handleListChairpersonEvents)
		r.Get("/events/{eventID}/registrations", s.handleListEventRegistrations)
		r.Post("/attendance/scan", s.handleScanAttendance)
		r.Post("/attendance/manual", s.handleManualAttendance)
		r.Get("/analytics/{eventID}", s.handleEventAnalytics)
		r.Get("/analytics/clubs/{clubID}", s.handleClubAnalytics)
	})

	r.Get("/clubs", s.handleListClubs)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/clubs", s.handleCreateClub)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Post("/clubs/{clubID}/members", s.handleAddClubMember)

	r.With(s.authMiddleware).Get("/users/profile", s.handleGetMe)
	r.With(s.authMiddleware).Put("/users/profile", s.handleUpdateProfile)
	r.With(s.authMiddleware, s.requireRole(model.RoleAdmin)).Put("/admin/users/{userID}/role", s.handleUpdateUserRole)

	return r
}
