package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tripbazaar/backend/internal/domain"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorMapping pairs a sentinel with its HTTP status and machine-readable code.
// Order matters: the first sentinel that errors.Is matches wins.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, "invalid_quantity"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrListingUnavailable, http.StatusConflict, "listing_unavailable"},
	{domain.ErrQuantityLimitExceeded, http.StatusConflict, "quantity_limit_exceeded"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrServerBusy, http.StatusServiceUnavailable, "server_busy"},
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already sent; nothing useful to do on failure.
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Error: &errorDetail{Code: code, Message: message}})
}

// WriteError maps err onto the status/code table. Anything unmapped is a 500
// with a generic message; the detail only goes to the log.
func (s *Server) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			writeFailure(w, m.status, m.code, publicMessage(err, m.target))
			return
		}
	}
	s.logger.ErrorContext(r.Context(), "unhandled error",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeFailure(w, http.StatusInternalServerError, "server_error", "internal server error")
}

// requestError rejects a request before it reaches the service layer.
func requestError(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// publicMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.CartService.AddOrIncrement: invalid quantity: quantity must be at least 1"
// becomes "invalid quantity: quantity must be at least 1".
func publicMessage(err, target error) string {
	var unavailable *domain.ListingUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Error()
	}
	msg := err.Error()
	if i := strings.Index(msg, target.Error()); i >= 0 {
		return msg[i:]
	}
	return target.Error()
}

// validationMessage flattens validator/v10 field errors into one line.
func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f.Tag() {
		case "required", "notblank":
			parts = append(parts, f.Field()+" is required")
		case "gte":
			parts = append(parts, f.Field()+" must be at least "+f.Param())
		case "iso4217":
			parts = append(parts, f.Field()+" must be an ISO 4217 currency code")
		case "oneof":
			parts = append(parts, f.Field()+" must be one of: "+f.Param())
		default:
			parts = append(parts, f.Field()+" is invalid ("+f.Tag()+")")
		}
	}
	return strings.Join(parts, "; ")
}
