package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Error kinds returned by the core services. Handlers translate these to
// HTTP statuses in exactly one place (WriteError).
const (
	ErrKindValidation = "validation"
	ErrKindConflict   = "conflict"
	ErrKindNotFound   = "not_found"
	ErrKindIntegrity  = "integrity"
)

// AppError is the structured error every mutating operation returns on
// failure: a stable kind, the specific rule or field that failed, and a
// human message. Never a bare stack trace.
type AppError struct {
	Kind    string `json:"kind"`
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ValidationError(field, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(rule, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindConflict, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(entity, id string) *AppError {
	return &AppError{Kind: ErrKindNotFound, Field: entity, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// IntegrityError marks a violated internal invariant. Callers must log it;
// it is never swallowed or retried.
func IntegrityError(rule, format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrKindIntegrity, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// TranslateDBError converts the gorm sentinel errors every write can surface
// into domain errors so the services never leak driver messages.
func TranslateDBError(err error, entity, rule string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFoundError(entity, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ConflictError(rule, "%s already exists", entity)
	default:
		return err
	}
}

type errorBody struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

// WriteError maps an error to its HTTP status and writes the standard
// envelope. Unknown errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = &AppError{Kind: ErrKindIntegrity, Message: "internal error"}
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case ErrKindValidation:
		status = http.StatusBadRequest
	case ErrKindConflict:
		status = http.StatusConflict
	case ErrKindNotFound:
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Success: false, Error: appErr})
}
