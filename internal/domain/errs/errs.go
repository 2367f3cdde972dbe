// Package errs defines the typed errors raised by allocation operations.
//
// Each type carries a machine-readable Code so HTTP handlers can map it to a
// status and a stable response code without string matching. Use errors.As to
// classify an error; anything that is not one of these types is a storage or
// programming fault.
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation   Code = "VALIDATION_FAILED"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"

	// Conflict refinements
	CodeProjectFull        Code = "PROJECT_FULL"
	CodeAlreadyAssigned    Code = "ALREADY_ASSIGNED"
	CodePreferenceSettled  Code = "PREFERENCE_SETTLED"
	CodeCommitInProgress   Code = "COMMIT_IN_PROGRESS"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"
	CodeEnterpriseAssigned Code = "ENTERPRISE_ALREADY_ASSIGNED"
)

// ValidationError reports a malformed request: missing fields, bad IDs,
// duplicate members in a bulk result.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Code returns CodeValidation.
func (e *ValidationError) Code() Code { return CodeValidation }

// InvalidInputError reports matcher input that violates its invariants
// (negative capacity, duplicate ranks, duplicate project IDs).
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid allocation input: " + e.Reason
}

// Code returns CodeInvalidInput.
func (e *InvalidInputError) Code() Code { return CodeInvalidInput }

// ForbiddenError reports that the caller lacks the role required for a scope.
type ForbiddenError struct {
	Action string
	Scope  string
}

func (e *ForbiddenError) Error() string {
	if e.Scope == "" {
		return "forbidden: " + e.Action
	}
	return fmt.Sprintf("forbidden: %s on %s", e.Action, e.Scope)
}

// Code returns CodeForbidden.
func (e *ForbiddenError) Code() Code { return CodeForbidden }

// NotFoundError reports a missing enterprise, company, project, preference,
// or member.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Code returns CodeNotFound.
func (e *NotFoundError) Code() Code { return CodeNotFound }

// ConflictError reports a request that is well-formed and authorized but
// collides with current state: a full project, an existing assignment, a
// concurrent commit.
type ConflictError struct {
	Reason  Code
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Code returns the refined conflict code, or CodeConflict.
func (e *ConflictError) Code() Code {
	if e.Reason == "" {
		return CodeConflict
	}
	return e.Reason
}

// Coded is implemented by every error type in this package.
type Coded interface {
	error
	Code() Code
}

// Validation builds a *ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidInput builds an *InvalidInputError.
func InvalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// Forbidden builds a *ForbiddenError.
func Forbidden(action, scope string) error {
	return &ForbiddenError{Action: action, Scope: scope}
}

// NotFound builds a *NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// Conflict builds a *ConflictError with a refined reason code.
func Conflict(reason Code, format string, args ...any) error {
	return &ConflictError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the machine code for err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err is (or wraps) a *ForbiddenError.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// IsConflict reports whether err is (or wraps) a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
