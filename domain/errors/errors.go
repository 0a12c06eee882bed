// Package errors provides the bridge error taxonomy.
// Every error type carries a machine-matchable code and supports errors.As().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-bridge/domain/entities"
)

// Machine-matchable error codes.
const (
	CodePermissionDenied  = "PERMISSION_ERROR"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeHandleNotFound    = "HANDLE_NOT_FOUND"
	CodeInvocationError   = "INVOCATION_ERROR"
	CodeFieldNotFound     = "FIELD_NOT_FOUND"
	CodeTypeMismatch      = "TYPE_MISMATCH"
	CodePathNotSet        = "PATH_NOT_SET"
	CodeOperationFailed   = "OPERATION_FAILED"
	CodeAborted           = "ABORTED"
	CodeProtocolViolation = "PROTOCOL_VIOLATION"
	CodeInternal          = "INTERNAL_ERROR"
)

// DetailedError is implemented by every error in this package.
type DetailedError interface {
	error
	Code() string
	ToErrorDetail() *entities.ErrorDetail
}

// CodeOf returns the code of the first DetailedError in err's chain.
// Errors from outside the taxonomy map to CodeInternal; nil maps to "".
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.Code()
	}
	var ed *entities.ErrorDetail
	if stdErrors.As(err, &ed) && ed.Code != "" {
		return ed.Code
	}
	return CodeInternal
}

// ToErrorDetail converts any error to the structured wire form.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}
	var ed *entities.ErrorDetail
	if stdErrors.As(err, &ed) {
		return ed
	}
	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
		Code:    CodeInternal,
	}
}

// FromErrorDetail rebuilds a typed error from a wire ErrorDetail so callers on
// the guest side can use errors.As with the same types the host raised.
func FromErrorDetail(d *entities.ErrorDetail) error {
	if d == nil {
		return nil
	}
	var cause error
	if d.Wrapped != nil {
		cause = FromErrorDetail(d.Wrapped)
	}
	switch d.Code {
	case CodeHandleNotFound:
		h, _ := entities.ParseHandle(d.Handle)
		return &HandleNotFoundError{Handle: h}
	case CodeInvocationError:
		if cause == nil {
			cause = stdErrors.New(d.Message)
		}
		return &InvocationError{Member: d.Member, Err: cause}
	case CodeFieldNotFound:
		return &FieldNotFoundError{Field: d.Member}
	case CodeTypeMismatch:
		return &TypeMismatchError{Member: d.Member, Detail: d.Message}
	case CodeInvalidArgument:
		return &InvalidArgumentError{Argument: d.Member, Reason: d.Message}
	case CodeProtocolViolation:
		return &ProtocolViolationError{Detail: d.Message}
	}
	return d
}

// PermissionDeniedError means the named channel is not installed.
type PermissionDeniedError struct {
	Channel    string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("unable to find the %q channel; did you forget to grant %q in the manifest permissions?",
			e.Channel, e.Permission)
	}
	return fmt.Sprintf("unable to find the %q channel", e.Channel)
}

func (e *PermissionDeniedError) Code() string { return CodePermissionDenied }

// ToErrorDetail implements DetailedError.
func (e *PermissionDeniedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "permission", Code: e.Code()}
}

// InvalidArgumentError is raised before any channel interaction.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Code() string { return CodeInvalidArgument }

// ToErrorDetail implements DetailedError.
func (e *InvalidArgumentError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Reason, Type: "validation", Code: e.Code(), Member: e.Argument}
}

// HandleNotFoundError means the handle is unknown or already released.
type HandleNotFoundError struct {
	Handle entities.Handle
}

func (e *HandleNotFoundError) Error() string {
	return fmt.Sprintf("handle %s not found", e.Handle)
}

func (e *HandleNotFoundError) Code() string { return CodeHandleNotFound }

// ToErrorDetail implements DetailedError.
func (e *HandleNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: e.Code(), Handle: e.Handle.String()}
}

// InvocationError wraps a failure while invoking a remote member.
type InvocationError struct {
	Err    error
	Member string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation of %q failed: %v", e.Member, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func (e *InvocationError) Code() string { return CodeInvocationError }

// ToErrorDetail implements DetailedError.
func (e *InvocationError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: e.Code(), Member: e.Member}
	if e.Err != nil {
		d.Wrapped = ToErrorDetail(e.Err)
	}
	return d
}

// FieldNotFoundError means the remote object has no assignable field of that name.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("field %q not found", e.Field)
}

func (e *FieldNotFoundError) Code() string { return CodeFieldNotFound }

// ToErrorDetail implements DetailedError.
func (e *FieldNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "invocation", Code: e.Code(), Member: e.Field}
}

// TypeMismatchError means a value could not be converted to the target type.
type TypeMismatchError struct {
	Member string
	Detail string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %q: %s", e.Member, e.Detail)
}

func (e *TypeMismatchError) Code() string { return CodeTypeMismatch }

// ToErrorDetail implements DetailedError.
func (e *TypeMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Detail, Type: "invocation", Code: e.Code(), Member: e.Member}
}

// PathNotSetError means a chunk was written before the path handshake completed.
type PathNotSetError struct{}

func (e *PathNotSetError) Error() string {
	return "path not set before writing chunk"
}

func (e *PathNotSetError) Code() string { return CodePathNotSet }

// ToErrorDetail implements DetailedError.
func (e *PathNotSetError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "stream", Code: e.Code()}
}

// OperationFailedError carries a failure reported by the host, or a failure to
// post a message. Detail holds the host's string verbatim.
type OperationFailedError struct {
	Err       error
	Operation string
	Detail    string
	// Reason is a finer-grained code such as "PATH_SET_FAILED".
	Reason string
}

func (e *OperationFailedError) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s failed: %s", e.Operation, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Operation)
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

func (e *OperationFailedError) Code() string { return CodeOperationFailed }

// ToErrorDetail implements DetailedError.
func (e *OperationFailedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "stream", Code: e.Code()}
}

// AbortedError is returned once a session was cancelled.
type AbortedError struct {
	Reason error
}

func (e *AbortedError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("operation aborted: %v", e.Reason)
	}
	return "operation aborted"
}

func (e *AbortedError) Unwrap() error {
	return e.Reason
}

func (e *AbortedError) Code() string { return CodeAborted }

// ToErrorDetail implements DetailedError.
func (e *AbortedError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "stream", Code: e.Code()}
}

// ProtocolViolationError means a reply had an unexpected shape.
type ProtocolViolationError struct {
	Channel string
	Detail  string
}

func (e *ProtocolViolationError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("protocol violation on %s: %s", e.Channel, e.Detail)
	}
	return fmt.Sprintf("protocol violation: %s", e.Detail)
}

func (e *ProtocolViolationError) Code() string { return CodeProtocolViolation }

// ToErrorDetail implements DetailedError.
func (e *ProtocolViolationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Detail, Type: "protocol", Code: e.Code()}
}
