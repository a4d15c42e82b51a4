package imagegen

import (
	"fmt"
	"net/http"

	"eduvision/internal/domain"
)

const (
	msgInvalidBody          = "Invalid request body"
	msgPromptRequired       = "Prompt is required"
	msgUpstreamRejected     = "Krea API error"
	msgCredentialsExhausted = "All API keys exhausted or invalid."
	msgJobCreationFailed    = "Job creation failed"
	msgPollingError         = "Polling error"
	msgGenerationFailed     = "Image generation failed"
	msgGenerationTimedOut   = "Generation timed out"
)

// Error is a classified pipeline failure. Kind is one of the domain sentinel
// errors; Status, Code, Message and Details form the HTTP reply.
type Error struct {
	Kind    error
	Status  int
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalidRequest(message string, cause error) *Error {
	return &Error{
		Kind:    domain.ErrInvalidRequest,
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: message,
		Err:     cause,
	}
}

func upstreamRejected(status int, details any, cause error) *Error {
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	return &Error{
		Kind:    domain.ErrUpstreamRejected,
		Status:  status,
		Code:    "upstream_rejected",
		Message: msgUpstreamRejected,
		Details: details,
		Err:     cause,
	}
}

func credentialsExhausted(attempts int) *Error {
	return &Error{
		Kind:    domain.ErrCredentialsExhausted,
		Status:  http.StatusPaymentRequired,
		Code:    "credentials_exhausted",
		Message: msgCredentialsExhausted,
		Err:     fmt.Errorf("%d credential(s) tried", attempts),
	}
}

func jobCreationIncomplete(details any) *Error {
	return &Error{
		Kind:    domain.ErrJobCreationIncomplete,
		Status:  http.StatusBadRequest,
		Code:    "job_creation_failed",
		Message: msgJobCreationFailed,
		Details: details,
	}
}

func pollingError(status int, details any, cause error) *Error {
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	return &Error{
		Kind:    domain.ErrPollingFailed,
		Status:  status,
		Code:    "polling_error",
		Message: msgPollingError,
		Details: details,
		Err:     cause,
	}
}

func generationFailed(details any) *Error {
	return &Error{
		Kind:    domain.ErrGenerationFailed,
		Status:  http.StatusInternalServerError,
		Code:    "generation_failed",
		Message: msgGenerationFailed,
		Details: details,
	}
}

func generationTimedOut(details any) *Error {
	return &Error{
		Kind:    domain.ErrGenerationTimedOut,
		Status:  http.StatusInternalServerError,
		Code:    "generation_timeout",
		Message: msgGenerationTimedOut,
		Details: details,
	}
}
