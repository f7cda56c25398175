package core

import (
	"fmt"
)

// Error represents an engine error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Detail  any       `json:"detail,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets callers branch on the error kind with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	if ue, ok := e.Detail.(error); ok {
		return ue
	}
	return nil
}

// ErrorKind categorizes errors.
type ErrorKind string

const (
	// KindPermissionDenied means the user declined microphone or camera
	// access. Surfaced distinctly so callers can show a remediation prompt;
	// never retried automatically.
	KindPermissionDenied ErrorKind = "permission_denied"
	// KindInsecureContext means the transport endpoint is not secure and the
	// host is not local loopback. Fatal precondition, not retried.
	KindInsecureContext ErrorKind = "insecure_context"
	// KindAcquisitionFailed covers device errors other than denial.
	KindAcquisitionFailed ErrorKind = "acquisition_failed"
	// KindTransport covers remote connection failures.
	KindTransport ErrorKind = "transport_error"
	// KindPlaybackDecode covers undecodable inbound audio chunks. Recovered
	// locally: the chunk is dropped and playback continues.
	KindPlaybackDecode ErrorKind = "playback_decode_error"
	// KindInvalidRequest covers caller mistakes.
	KindInvalidRequest ErrorKind = "invalid_request"
)

// Kind sentinels for errors.Is checks.
var (
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied, Message: "media permission denied"}
	ErrInsecureContext   = &Error{Kind: KindInsecureContext, Message: "secure transport context required"}
	ErrAcquisitionFailed = &Error{Kind: KindAcquisitionFailed, Message: "media acquisition failed"}
	ErrTransport         = &Error{Kind: KindTransport, Message: "live transport failed"}
	ErrPlaybackDecode    = &Error{Kind: KindPlaybackDecode, Message: "playback chunk undecodable"}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
)

// NewPermissionError creates a permission-denied error.
func NewPermissionError(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

// NewInsecureContextError creates an insecure-context error.
func NewInsecureContextError(message string) *Error {
	return &Error{Kind: KindInsecureContext, Message: message}
}

// NewAcquisitionError creates an acquisition-failed error wrapping the device error.
func NewAcquisitionError(underlying error) *Error {
	return &Error{
		Kind:    KindAcquisitionFailed,
		Message: fmt.Sprintf("media acquisition failed: %v", underlying),
		Detail:  underlying,
	}
}

// NewTransportError creates a transport error wrapping the connection error.
func NewTransportError(underlying error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: fmt.Sprintf("live transport: %v", underlying),
		Detail:  underlying,
	}
}

// NewPlaybackDecodeError creates a playback decode error.
func NewPlaybackDecodeError(message string) *Error {
	return &Error{Kind: KindPlaybackDecode, Message: message}
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// KindOf returns the kind of an engine error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
