package action

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/raceday-mx/raceday-backend/internal/repository"
)

// ErrorKind is the wire-visible failure taxonomy. Every public entry point
// reports expected failures through one of these instead of an exception.
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "UNAUTHENTICATED"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindInvalidInput     ErrorKind = "INVALID_INPUT"
	KindNoPassword       ErrorKind = "NO_PASSWORD"
	KindInvalidPassword  ErrorKind = "INVALID_PASSWORD"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindCannotDeleteSelf ErrorKind = "CANNOT_DELETE_SELF"
	KindEmailTaken       ErrorKind = "EMAIL_TAKEN"
	KindInvalidToken     ErrorKind = "INVALID_TOKEN"
	KindExpiredToken     ErrorKind = "EXPIRED_TOKEN"
	KindServerError      ErrorKind = "SERVER_ERROR"
)

// Error is a typed expected failure carried through the service layer.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Invalid builds an INVALID_INPUT error carrying field-level detail for
// form rendering.
func Invalid(fields map[string]string) *Error {
	return &Error{Kind: KindInvalidInput, Message: "validation failed", Fields: fields}
}

// KindOf classifies an error. Unrecognized errors are infrastructure
// failures and map to SERVER_ERROR.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, repository.ErrNotFound) {
		return KindNotFound
	}
	return KindServerError
}

// Result is the discriminated envelope returned to callers: either
// {ok:true, ...data} or {ok:false, error, fieldErrors?, details?}.
type Result[T any] struct {
	OK          bool
	Data        T
	Kind        ErrorKind
	Message     string
	FieldErrors map[string]string
	Details     map[string]any
}

func OK[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

// Fail converts an error into a typed result. SERVER_ERROR-class failures
// are logged server-side; their detail never reaches the caller.
func Fail[T any](err error) Result[T] {
	kind := KindOf(err)
	res := Result[T]{OK: false, Kind: kind}
	var ae *Error
	if errors.As(err, &ae) {
		res.Message = ae.Message
		res.FieldErrors = ae.Fields
		res.Details = ae.Details
	}
	if kind == KindServerError {
		slog.Error("action failed", "error", err)
		res.Message = ""
	}
	return res
}

func FailKind[T any](kind ErrorKind) Result[T] {
	return Result[T]{OK: false, Kind: kind}
}

// Status maps an error kind to its HTTP status.
func (r Result[T]) Status() int {
	if r.OK {
		return fiber.StatusOK
	}
	switch r.Kind {
	case KindUnauthenticated, KindInvalidPassword:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindEmailTaken:
		return fiber.StatusConflict
	case KindExpiredToken:
		return fiber.StatusGone
	case KindInvalidInput, KindNoPassword, KindInvalidToken, KindCannotDeleteSelf:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
