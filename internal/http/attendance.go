package http

import (
	"net/http"
	"strings"

	"campusevents/internal/model"
	"campusevents/internal/operations"
)

type scanRequest struct {
	QRData  string   `json:"qrData"`
	EventID string   `json:"eventId"`
	Lat     *float64 `json:"lat"`
	Long    *float64 `json:"long"`
}

type manualRequest struct {
	RegistrationID string  `json:"registrationId"`
	EventID        string  `json:"eventId"`
	Status         string  `json:"status"`
	Notes          *string `json:"notes"`
}

func (s *Server) handleScanAttendance(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if (req.Lat == nil) != (req.Long == nil) {
		writeError(w, http.StatusBadRequest, "invalid_location")
		return
	}
	if req.Lat != nil && (*req.Lat < -90 || *req.Lat > 90 || *req.Long < -180 || *req.Long > 180) {
		writeError(w, http.StatusBadRequest, "invalid_location")
		return
	}

	actor := actorFromContext(r.Context())
	reg, err := s.ops.Scan(r.Context(), actor, operations.ScanRequest{
		QRData:    req.QRData,
		EventID:   strings.TrimSpace(req.EventID),
		Latitude:  req.Lat,
		Longitude: req.Long,
	})
	attendanceMarksTotal.WithLabelValues("scan", outcome(err)).Inc()
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.invalidateEventAnalytics(r.Context(), reg.EventID)
	writeJSON(w, http.StatusOK, newRegistrationView(reg, false))
}

func (s *Server) handleManualAttendance(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	actor := actorFromContext(r.Context())
	reg, err := s.ops.ManualMark(r.Context(), actor, operations.ManualRequest{
		RegistrationID: strings.TrimSpace(req.RegistrationID),
		EventID:        strings.TrimSpace(req.EventID),
		Status:         model.AttendanceStatus(strings.TrimSpace(strings.ToLower(req.Status))),
		Notes:          req.Notes,
	})
	attendanceMarksTotal.WithLabelValues("manual", outcome(err)).Inc()
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	s.invalidateEventAnalytics(r.Context(), reg.EventID)
	writeJSON(w, http.StatusOK, newRegistrationView(reg, false))
}
