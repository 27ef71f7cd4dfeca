package account

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// APIError is the error object inside the response envelope.
type APIError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error implements error so clients can return decoded envelopes directly.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse is the JSON envelope of every failed request.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// writeJSON writes a JSON response with proper headers.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError writes the error envelope and logs the failure.
// Client errors log at warn level, server errors at error level.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	requestID := middleware.GetReqID(r.Context())

	level := log.WarnLevel
	if status >= http.StatusInternalServerError {
		level = log.ErrorLevel
	}
	s.logger.Log(level, "request failed",
		"status", status,
		"type", errType,
		"message", message,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestID,
	)

	w.Header().Set("X-Error-Type", errType)
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error: APIError{
			Type:      errType,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// internalError hides err from the client and logs it.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("internal error", "error", err, "path", r.URL.Path)
	s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, "Internal server error")
}

// recoverer turns handler panics into the error envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.logger.Error("panic recovered",
					"panic", fmt.Sprintf("%v", rvr),
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				s.writeError(w, r, http.StatusInternalServerError, ErrTypeInternal, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
