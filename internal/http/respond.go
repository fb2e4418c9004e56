package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Clark-Hu/media-reviews/internal/domain"
	"github.com/Clark-Hu/media-reviews/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MiB

// retryAfterSecs is advertised on 503 responses for transient storage failures.
const retryAfterSecs = "1"

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Warn("http: failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", strings.TrimPrefix(err.Error(), "json: "))
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondValidation writes a 422 for a failed struct validation.
func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: verr.Error(),
			Details: verr.Details(),
		})
		return
	}
	s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
}

// decodeAndValidate decodes the body into dst and validates it, writing the
// error response itself. It reports whether the handler may continue.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decodeJSONBody(w, r, dst); err != nil {
		s.respondDecodeError(w, err)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		s.respondValidation(w, err)
		return false
	}
	return true
}

// statusForError maps a domain error class to its HTTP status and code.
func statusForError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Resource already exists"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "Operation not allowed"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE", "Request conflicts with current state"
	case errors.Is(err, domain.ErrTransient):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "Temporarily unavailable, retry later"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}

// respondDomainError writes the response for err returned by a repository or
// the review service. op names the failed operation in logs.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, message := statusForError(err)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error("http: request failed", fields...)
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", retryAfterSecs)
		s.logger.Warn("http: request failed", fields...)
	}
	s.respondError(w, status, code, message)
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", fmt.Errorf("missing id parameter")
	}
	return id, nil
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
