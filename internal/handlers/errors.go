package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Agney-gt/sparklog-sub000/internal/auth"
	"github.com/Agney-gt/sparklog-sub000/internal/database"
	"github.com/Agney-gt/sparklog-sub000/internal/logging"
	"github.com/Agney-gt/sparklog-sub000/internal/middleware"
	"github.com/Agney-gt/sparklog-sub000/internal/models"
	"github.com/Agney-gt/sparklog-sub000/internal/webhook"
)

var (
	errNotFound            = errors.New("not found")
	errInsufficientBalance = errors.New("insufficient balance")
	errInvalidCredentials  = errors.New("invalid email or password")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Column widths of the VARCHAR fields clients write to
const (
	maxUsernameLen = 50
	maxEmailLen    = 255
	maxNameLen     = 100
	maxTitleLen    = 200
)

// tooLong reports whether s holds more than limit characters, counted the way
// Postgres counts VARCHAR length
func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// notFound wraps errNotFound with the missing resource name
func notFound(what string) error {
	return fmt.Errorf("%s %w", what, errNotFound)
}

// fail maps err to a status code and writes the error envelope. Unexpected
// errors are logged and reported as "Failed to <op>".
func fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, errInsufficientBalance):
		writeError(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, errInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case database.IsUniqueViolation(err):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, webhook.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Transcript relay is not configured")
	case errors.Is(err, webhook.ErrUpstream), errors.Is(err, webhook.ErrEmptyTranscript):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Upstream service failed", Message: err.Error()})
	default:
		logging.FromContext(r.Context(), "api").WithError(err).Errorf("Failed to %s", op)
		writeError(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// currentUser returns the session claims or writes 401
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.CustomClaims, bool) {
	claims, ok := middleware.GetUserClaims(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return claims, true
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "A valid id is required")
	}
	return id, nil
}

// optionalDate parses a YYYY-MM-DD value, returning the zero date for ""
func optionalDate(field, raw string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, invalid(field, err.Error())
	}
	return d, nil
}

// orToday returns d, or today when d is zero
func orToday(d models.Date) models.Date {
	if d.IsZero() {
		return models.Today()
	}
	return d
}
