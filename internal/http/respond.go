package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"campusevents/internal/logger"
	"campusevents/internal/operations"
)

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeOpError maps a workflow error onto its status code. Server errors are
// logged and collapsed to server_error.
func (s *Server) writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	opErr := operations.AsError(err)
	var status int
	switch opErr.Kind {
	case operations.KindValidation:
		status = http.StatusBadRequest
	case operations.KindForbidden:
		status = http.StatusForbidden
	case operations.KindNotFound:
		status = http.StatusNotFound
	case operations.KindConflict:
		status = http.StatusConflict
	default:
		s.serverError(w, r, opErr.Err)
		return
	}
	writeError(w, status, opErr.Code)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed",
		zap.String(logger.FieldMethod, r.Method),
		zap.String(logger.FieldPath, r.URL.Path),
		zap.String(logger.FieldRequestID, middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "server_error")
}
