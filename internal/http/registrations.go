package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusevents/internal/mail"
	"campusevents/internal/operations"
	"campusevents/internal/qr"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	reg, err := s.ops.Register(r.Context(), actor, chi.URLParam(r, "eventID"))
	registrationsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.invalidateEventAnalytics(r.Context(), reg.EventID)
	writeJSON(w, http.StatusCreated, newRegistrationView(reg, true))
}

func (s *Server) handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	reg, err := s.ops.Cancel(r.Context(), actor, chi.URLParam(r, "registrationID"))
	cancellationsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.invalidateEventAnalytics(r.Context(), reg.EventID)
	writeJSON(w, http.StatusOK, newRegistrationView(reg, false))
}

type qrResponse struct {
	RegistrationID string `json:"registrationId"`
	EventID        string `json:"eventId"`
	QRData         string `json:"qrData"`
	QRImage        string `json:"qrImage"`
	QRToken        string `json:"qrToken"`
}

// handleGetQRCode returns the stored credential as JSON, or the bare PNG when
// called with ?format=png.
func (s *Server) handleGetQRCode(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	reg, err := s.ops.QRCode(r.Context(), actor, chi.URLParam(r, "registrationID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "png") {
		png, err := qr.DecodeImage(reg.QRImage)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
		return
	}

	writeJSON(w, http.StatusOK, qrResponse{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		QRData:         reg.QRData,
		QRImage:        reg.QRImage,
		QRToken:        reg.QRSealed,
	})
}

type feedbackRequest struct {
	Rating  int32   `json:"rating"`
	Comment *string `json:"comment"`
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	actor := actorFromContext(r.Context())
	registrationID := chi.URLParam(r, "registrationID")
	feedback, err := s.ops.SubmitFeedback(r.Context(), actor, operations.FeedbackRequest{
		RegistrationID: registrationID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if reg, err := s.store.GetRegistration(r.Context(), registrationID); err == nil {
		s.invalidateEventAnalytics(r.Context(), reg.EventID)
	}
	writeJSON(w, http.StatusCreated, feedbackView{Rating: feedback.Rating, Comment: feedback.Comment, SubmittedAt: feedback.SubmittedAt})
}

func (s *Server) handleListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID := strings.TrimSpace(r.URL.Query().Get("eventId"))
	if eventID != "" {
		if _, err := uuid.Parse(eventID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id")
			return
		}
	}
	actor := actorFromContext(r.Context())
	registrations, err := s.store.ListUserRegistrations(r.Context(), actor.UserID, eventID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	views := make([]registrationView, 0, len(registrations))
	for _, reg := range registrations {
		views = append(views, newRegistrationView(reg, true))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"registrations": views})
}

type confirmRequest struct {
	RegistrationID string `json:"registrationId"`
}

// handleConfirmRegistration emails the caller a confirmation for one of their
// registrations to the event in the path, with the QR code attached.
func (s *Server) handleConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.RegistrationID) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	actor := actorFromContext(r.Context())
	reg, err := s.ops.QRCode(r.Context(), actor, req.RegistrationID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if reg.EventID != chi.URLParam(r, "eventID") {
		writeError(w, http.StatusNotFound, operations.ErrRegistrationNotFound)
		return
	}

	event, err := s.store.GetEvent(r.Context(), reg.EventID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	club, err := s.store.GetClub(r.Context(), event.ClubID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	user, err := s.store.GetUserByID(r.Context(), reg.UserID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	png, err := qr.DecodeImage(reg.QRImage)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	confirmation := mail.Confirmation{
		To:       mail.Address{Email: user.Email, Name: user.FullName},
		Event:    event.Title,
		Club:     club.Name,
		StartAt:  event.StartAt,
		Online:   event.IsOnline,
		TicketID: reg.ID,
		QRCode:   png,
	}
	if event.VenueAddress != nil {
		confirmation.Venue = *event.VenueAddress
	}
	if event.OnlineLink != nil {
		confirmation.Link = *event.OnlineLink
	}
	msg, err := mail.ConfirmationMessage(confirmation)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	err = s.mailer.Send(r.Context(), msg)
	if err != nil {
		confirmationEmailsTotal.WithLabelValues("email_failed").Inc()
		s.log.Error("confirmation email failed",
			zap.String("registration_id", reg.ID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "email_failed")
		return
	}
	confirmationEmailsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Confirmation email sent",
	})
}
