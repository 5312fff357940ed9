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
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// TransportErrorMessage describes a failed call to the model backend.
	TransportErrorMessage = "model backend request failed"
	// PromptErrorMessage describes a prompt catalog failure.
	PromptErrorMessage = "prompt rendering failed"
	// ToolErrorMessage describes a failed tool invocation.
	ToolErrorMessage = "tool execution failed"
	// AmbiguousMessage describes a classification that matched no tag.
	AmbiguousMessage = "classification ambiguous"
)

// Kind groups errors by the policy the orchestrator applies to them.
type Kind string

const (
	KindUnknown                 Kind = ""
	KindTransport               Kind = "transport"
	KindPrompt                  Kind = "prompt"
	KindToolExecution           Kind = "tool_execution"
	KindClassificationAmbiguous Kind = "classification_ambiguous"
	KindStorage                 Kind = "storage"
	KindInvalidInput            Kind = "invalid_input"
)

var (
	ErrPromptNotFound          = errors.New("prompt not found")
	ErrMissingParameter        = errors.New("missing prompt parameter")
	ErrClassificationAmbiguous = errors.New("no tag matched")
	ErrSessionNotFound         = errors.New("session not found")
	ErrToolNotFound            = errors.New("tool not found")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
	Kind    Kind
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
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

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

func withKind(err error, kind Kind, status int, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Err: err, Status: status, Message: message, Kind: kind}
}

// Transport marks a failed or timed out model backend call.
func Transport(err error) error {
	return withKind(err, KindTransport, http.StatusBadGateway, TransportErrorMessage)
}

// Prompt marks a missing template or parameter.
func Prompt(err error) error {
	return withKind(err, KindPrompt, http.StatusInternalServerError, PromptErrorMessage)
}

// ToolExecution marks an error raised by a tool callable.
func ToolExecution(err error) error {
	return withKind(err, KindToolExecution, http.StatusInternalServerError, ToolErrorMessage)
}

// Ambiguous marks a classifier output that matched no allowed tag.
func Ambiguous(err error) error {
	return withKind(err, KindClassificationAmbiguous, http.StatusUnprocessableEntity, AmbiguousMessage)
}

// InvalidInput marks a caller mistake such as an empty utterance.
func InvalidInput(err error) error {
	if err == nil {
		return nil
	}
	return withKind(err, KindInvalidInput, http.StatusBadRequest, err.Error())
}

// KindOf returns the kind of the outermost AppError in the chain.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var ae *AppError
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
