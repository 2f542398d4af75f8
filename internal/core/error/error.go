package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a cache miss surfaced as an error.
	RedisNotFoundMessage = "redis key not found"
	// MongoErrorMessage describes document store failures.
	MongoErrorMessage = "document store operation failed"
	// MongoNotFoundMessage describes a missing document.
	MongoNotFoundMessage = "document not found"
)

// Kind is the symbolic category of a failure. Kinds are stable strings so
// they can be written into audit records and compared by callers.
type Kind string

const (
	KindUnknown               Kind = ""
	KindConfigNotFound        Kind = "ConfigNotFound"
	KindUnsupportedActionType Kind = "UnsupportedActionType"
	KindMissingSecret         Kind = "MissingSecret"
	KindInvalidMethod         Kind = "InvalidMethod"
	KindCompositionError      Kind = "CompositionError"
	KindScriptEvalFailure     Kind = "ScriptEvalFailure"
	KindUpstreamFailure       Kind = "UpstreamFailure"
	KindIntegrationFailure    Kind = "IntegrationFailure"
	KindScheduleFailure       Kind = "ScheduleFailure"
	KindTemplateValidation    Kind = "TemplateValidation"
	KindStoreFailure          Kind = "StoreFailure"
	KindCacheFailure          Kind = "CacheFailure"
)

var kindStatus = map[Kind]int{
	KindConfigNotFound:        http.StatusNotFound,
	KindUnsupportedActionType: http.StatusBadRequest,
	KindMissingSecret:         http.StatusUnprocessableEntity,
	KindInvalidMethod:         http.StatusBadRequest,
	KindCompositionError:      http.StatusUnprocessableEntity,
	KindScriptEvalFailure:     http.StatusBadGateway,
	KindUpstreamFailure:       http.StatusBadGateway,
	KindIntegrationFailure:    http.StatusBadGateway,
	KindScheduleFailure:       http.StatusBadGateway,
	KindTemplateValidation:    http.StatusUnprocessableEntity,
	KindStoreFailure:          http.StatusBadGateway,
	KindCacheFailure:          http.StatusBadGateway,
}

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// E builds an AppError of the given kind. The status follows the kind.
func E(kind Kind, message string, err error) *AppError {
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Kind: kind, Err: err, Status: status, Message: message}
}

// Ef is E with a formatted message and no wrapped cause.
func Ef(kind Kind, format string, args ...any) *AppError {
	return E(kind, fmt.Sprintf(format, args...), nil)
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t.Kind != KindUnknown {
		return t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
