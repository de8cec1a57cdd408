package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"govichain/internal/model"
)

var (
	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = &NotFoundError{Entity: "project"}
	// ErrMilestoneNotFound is returned when a milestone does not exist.
	ErrMilestoneNotFound = &NotFoundError{Entity: "milestone"}
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = &NotFoundError{Entity: "user"}
)

// AccessDeniedError is returned when the principal's role is not in the
// operation's allowed set.
type AccessDeniedError struct {
	Required []model.Role
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied, required roles: %v", e.Required)
}

// NotFoundError is returned when an entity lookup fails.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is lets a NotFoundError with an ID match its entity sentinel.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Entity == e.Entity
}

// InvalidInputError is returned when a field fails validation.
type InvalidInputError struct {
	Field      string
	Constraint string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Constraint)
}

// BudgetExceededError is returned when a milestone creation would push the
// project's total requested amount past its budget.
type BudgetExceededError struct {
	AttemptedTotal decimal.Decimal
	Budget         decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("total milestone amount (%s) exceeds project budget (%s)",
		e.AttemptedTotal.StringFixed(2), e.Budget.StringFixed(2))
}

// InvalidTransitionError is returned when a milestone has already been
// reviewed and cannot change state again.
type InvalidTransitionError struct {
	Current model.MilestoneStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("milestone is already %s", e.Current)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		accessDenied      *AccessDeniedError
		notFound          *NotFoundError
		invalidInput      *InvalidInputError
		budgetExceeded    *BudgetExceededError
		invalidTransition *InvalidTransitionError
	)
	switch {
	case errors.As(err, &accessDenied):
		return NewHTTPError(http.StatusForbidden, err.Error(), "ACCESS_DENIED")
	case errors.As(err, &notFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.As(err, &invalidInput):
		return NewHTTPError(http.StatusUnprocessableEntity, err.Error(), "INVALID_INPUT")
	case errors.As(err, &budgetExceeded):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "BUDGET_EXCEEDED")
	case errors.As(err, &invalidTransition):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_TRANSITION")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
