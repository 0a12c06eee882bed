package entities

import "fmt"

// ErrorDetail is the structured error carried in object bridge replies.
// Code is one of the machine-matchable codes from domain/errors
// (e.g. "HANDLE_NOT_FOUND"); Member names the remote member when relevant.
type ErrorDetail struct {
	// Wrapped holds the underlying cause, if any.
	Wrapped *ErrorDetail `json:"wrapped,omitempty" cbor:"wrapped,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message" cbor:"message"`

	// Type categorizes the error: "protocol", "invocation", "permission",
	// "validation", "stream", "internal".
	Type string `json:"type" cbor:"type"`

	// Code is the machine-readable error code.
	Code string `json:"code" cbor:"code"`

	// Member is the remote member involved, for invocation failures.
	Member string `json:"member,omitempty" cbor:"member,omitempty"`

	// Handle is the remote handle involved, if any.
	Handle string `json:"handle,omitempty" cbor:"handle,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates an ErrorDetail with the given type, code and message.
func NewErrorDetail(errorType, code, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}
