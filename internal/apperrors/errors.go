// Package apperrors defines the error taxonomy of the checkout engine.
//
// Every class has a sentinel so callers can branch with errors.Is, and a
// constructor returning an *AppError that carries a user-facing message and
// the HTTP status the web layer should answer with.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors, one per failure class.
var (
	ErrConfiguration           = errors.New("configuration error")
	ErrStorage                 = errors.New("storage error")
	ErrCartClosed              = errors.New("cart is closed")
	ErrCartNotFound            = errors.New("cart not found")
	ErrRegistrationNotFound    = errors.New("registration not found")
	ErrDuplicateStep           = errors.New("duplicate checkout step")
	ErrInvalidStep             = errors.New("invalid checkout step")
	ErrStepNotFound            = errors.New("checkout step not found")
	ErrMissingTerminalResponse = errors.New("last checkout step returned no response")
	ErrInvalidInput            = errors.New("invalid input")
	ErrNotFound                = errors.New("resource not found")
	ErrInvalidTransition       = errors.New("invalid booking state transition")
	ErrUnsubscribeNotAllowed   = errors.New("unsubscription not allowed")
)

// AppError is a structured error with a stable code and HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error returns the message, followed by the cause when there is one.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel and the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Configuration reports a missing or invalid event, calendar or pipeline
// configuration. It is always fatal to the current operation.
func Configuration(format string, args ...any) *AppError {
	return &AppError{
		Code:    "CONFIGURATION_ERROR",
		Message: fmt.Sprintf(format, args...),
		Status:  http.StatusInternalServerError,
		Err:     ErrConfiguration,
	}
}

// storageError keeps both the sentinel and the driver error in the chain.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return fmt.Sprintf("%s: %v", e.op, e.err) }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }

// Storage wraps a persistence failure so that errors.Is(err, ErrStorage)
// holds while the driver error stays reachable.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return &storageError{op: op, err: err}
}

// CartClosed reports a mutation attempt on a completed cart.
func CartClosed(cartID string) *AppError {
	return &AppError{
		Code:    "CART_CLOSED",
		Message: fmt.Sprintf("cart %s has already been checked out", cartID),
		Status:  http.StatusConflict,
		Err:     ErrCartClosed,
	}
}

// CartNotFound reports a session bound to a cart that no longer exists.
func CartNotFound(cartID string) *AppError {
	return &AppError{
		Code:    "CART_NOT_FOUND",
		Message: fmt.Sprintf("cart %s not found", cartID),
		Status:  http.StatusNotFound,
		Err:     ErrCartNotFound,
	}
}

// RegistrationNotFound is raised during commit when a cart item has no row.
func RegistrationNotFound(uuid string) *AppError {
	return &AppError{
		Code:    "REGISTRATION_NOT_FOUND",
		Message: fmt.Sprintf("registration %s not found", uuid),
		Status:  http.StatusNotFound,
		Err:     ErrRegistrationNotFound,
	}
}

// DuplicateStep is returned when a step identifier is registered twice.
func DuplicateStep(identifier string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_STEP",
		Message: fmt.Sprintf("checkout step %q is already registered", identifier),
		Status:  http.StatusInternalServerError,
		Err:     ErrDuplicateStep,
	}
}

// InvalidStep is returned when a step does not satisfy the step contract.
func InvalidStep(reason string) *AppError {
	return &AppError{
		Code:    "INVALID_STEP",
		Message: reason,
		Status:  http.StatusInternalServerError,
		Err:     ErrInvalidStep,
	}
}

// StepNotFound reports a lookup of an unregistered step.
func StepNotFound(identifier string) *AppError {
	return &AppError{
		Code:    "STEP_NOT_FOUND",
		Message: fmt.Sprintf("checkout step %q not found", identifier),
		Status:  http.StatusNotFound,
		Err:     ErrStepNotFound,
	}
}

// MissingTerminalResponse reports a last step that committed without
// producing its own redirect.
func MissingTerminalResponse(identifier string) *AppError {
	return &AppError{
		Code:    "MISSING_TERMINAL_RESPONSE",
		Message: fmt.Sprintf("checkout step %q is the last step and must return a response", identifier),
		Status:  http.StatusInternalServerError,
		Err:     ErrMissingTerminalResponse,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidTransition reports a booking state change rejected by the strict graph.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("booking state can not change from %s to %s", from, to),
		Status:  http.StatusConflict,
		Err:     ErrInvalidTransition,
	}
}

// UnsubscribeNotAllowed reports a rejected unsubscription request.
func UnsubscribeNotAllowed(message string) *AppError {
	return &AppError{
		Code:    "UNSUBSCRIBE_NOT_ALLOWED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrUnsubscribeNotAllowed,
	}
}

// IsFatal reports whether err must abort a checkout request instead of
// being shown to the booker.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrMissingTerminalResponse)
}

// UserMessage returns the message safe to show to a booker.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrRegistrationNotFound), errors.Is(err, ErrStepNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrCartClosed), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsubscribeNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
