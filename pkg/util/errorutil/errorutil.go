package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the service and transport layers.
const (
	CodeValidation          = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidEntityKind   = "INVALID_ENTITY_KIND"
	CodeOverpayment         = "OVERPAYMENT"
	CodeNotExecutable       = "NOT_EXECUTABLE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeExternalTimeout     = "EXTERNAL_TIMEOUT"
	CodeExternalError       = "EXTERNAL_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewForbidden never carries details so that it cannot leak data owned by another tenant.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewInvalidTransition reports a status change absent from the entity's transition table.
func NewInvalidTransition(kind, from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("%s cannot transition from %s to %s", kind, from, to),
		http.StatusConflict,
		map[string]any{"entity_kind": kind, "from": from, "to": to})
}

func NewInvalidState(kind, state string) error {
	return NewDomainError(CodeInvalidState,
		fmt.Sprintf("unknown %s state %q", kind, state),
		http.StatusInternalServerError,
		map[string]any{"entity_kind": kind, "state": state})
}

func NewInvalidEntityKind(kind string) error {
	return NewDomainError(CodeInvalidEntityKind,
		fmt.Sprintf("unknown entity kind %q", kind),
		http.StatusInternalServerError,
		map[string]any{"entity_kind": kind})
}

func NewOverpayment(total, amountPaid, amount int64) error {
	return NewDomainError(CodeOverpayment, "payment exceeds invoice balance",
		http.StatusUnprocessableEntity,
		map[string]any{"total": total, "amount_paid": amountPaid, "amount": amount, "balance_due": total - amountPaid})
}

func NewNotExecutable(status string) error {
	return NewDomainError(CodeNotExecutable, "workflow is not executable in status "+status,
		http.StatusConflict, map[string]any{"status": status})
}

func NewConcurrencyConflict(kind, id string) error {
	return NewDomainError(CodeConcurrencyConflict, kind+" was modified concurrently",
		http.StatusConflict, map[string]any{"entity_kind": kind, "entity_id": id})
}

func NewExternalTimeout(err error) error {
	return &DomainError{
		Code:       CodeExternalTimeout,
		Message:    "workflow runner timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewExternalError(err error) error {
	return &DomainError{
		Code:       CodeExternalError,
		Message:    "workflow runner failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether any DomainError in the chain carries code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
