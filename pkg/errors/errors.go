package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     nil,
	}
}

// InvalidParticipants rejects a self-conversation before any write happens.
func InvalidParticipants(message string) *AppError {
	return &AppError{
		Code:    "INVALID_PARTICIPANTS",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NotAParticipant rejects a message from a sender outside the chat's pair.
func NotAParticipant(message string) *AppError {
	return &AppError{
		Code:    "NOT_A_PARTICIPANT",
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// EmptyMessage rejects blank text after trimming.
func EmptyMessage() *AppError {
	return &AppError{
		Code:    "EMPTY_MESSAGE",
		Message: "Message text must not be empty",
		Status:  http.StatusBadRequest,
	}
}

// ConversationAmbiguous reports more than one chat matching a canonical key.
// This means the uniqueness invariant was violated upstream; it is surfaced,
// never resolved by picking an arbitrary match.
func ConversationAmbiguous(key string) *AppError {
	return &AppError{
		Code:    "CONVERSATION_AMBIGUOUS",
		Message: fmt.Sprintf("Multiple chats exist for key %s", key),
		Status:  http.StatusConflict,
	}
}

// CollaboratorUnavailable wraps a failure reaching the document store, auth
// service or recommendation model. detail carries the underlying error code
// when one is available, so callers can tell permission problems from
// transient network ones.
func CollaboratorUnavailable(message string, detail string, err error) *AppError {
	if detail != "" {
		message = fmt.Sprintf("%s (%s)", message, detail)
	}
	return &AppError{
		Code:    "COLLABORATOR_UNAVAILABLE",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func TooManyRequests(message string, waitTime interface{}) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     nil,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
