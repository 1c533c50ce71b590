// Package apierror defines the error taxonomy shared by the HTTP surface.
//
// Every failure that can reach a client is an *Error carrying the HTTP
// status, a stable machine-readable code, and human-readable title/detail.
// Handlers translate storage and token failures into this taxonomy before
// rendering; anything unrecognized is wrapped into a generic 500 whose
// original cause is logged and never leaked.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API-visible failure.
type Error struct {
	Status int    `json:"status,string"`
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`

	// Pointer is a JSON pointer to the offending document member, when the
	// failure is attributable to one (for example /data/attributes/email).
	Pointer string `json:"-"`

	cause error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// Unwrap exposes the original cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches the originating error without exposing it to clients.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithPointer attaches a JSON pointer source to the error.
func (e *Error) WithPointer(pointer string) *Error {
	e.Pointer = pointer
	return e
}

// Internal is the catch-all 500. The detail deliberately says nothing about
// the cause; the cause is for logs only.
func Internal(cause error) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Code:   "api_error",
		Title:  "Fatal API Error",
		Detail: "The API encountered a fatal error. An alert has been raised" +
			" to our administrators.",
		cause: cause,
	}
}

// NotFound covers missing and soft-deleted resources alike.
func NotFound() *Error {
	return &Error{
		Status: http.StatusNotFound,
		Code:   "not_found",
		Title:  "Resource not found",
		Detail: "The resource you requested does not exist.",
	}
}

// Forbidden is returned when the requester is neither owner nor admin.
func Forbidden() *Error {
	return &Error{
		Status: http.StatusForbidden,
		Code:   "forbidden",
		Title:  "Access to this resource is forbidden",
		Detail: "You need to be the owner of the resource or an administrator" +
			" to perform this action.",
	}
}

// Conflict reports a uniqueness violation on one attribute.
func Conflict(field string) *Error {
	return &Error{
		Status: http.StatusConflict,
		Code:   "conflict",
		Title:  fmt.Sprintf("%s must be unique", field),
		Detail: "The request could not be completed due to a conflict with" +
			" the current state of the target resource.",
		Pointer: "/data/attributes/" + field,
	}
}

// BadRequest is a generic 400 with a caller-supplied code.
func BadRequest(code, title, detail string) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// MissingParameter reports an absent mandatory body member.
func MissingParameter(attr, pointer string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "missing_parameter",
		Title:   fmt.Sprintf("%s is a mandatory parameter", attr),
		Detail:  fmt.Sprintf("The attribute %s is required. Please refer to the API documentation.", attr),
		Pointer: pointer,
	}
}

// InvalidAttribute reports a body member that may not be written.
func InvalidAttribute(attr, pointer string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "invalid_attribute",
		Title:   fmt.Sprintf("%s is not a valid attribute", attr),
		Detail:  fmt.Sprintf("The attribute %s cannot be written through this operation.", attr),
		Pointer: pointer,
	}
}

// ValidationFailed reports a malformed attribute value.
func ValidationFailed(attr, msg, pointer string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    "validation_failed",
		Title:   fmt.Sprintf("%s %s", attr, msg),
		Detail:  fmt.Sprintf("An error occurred, related to the attribute %s. Please refer to the API documentation.", attr),
		Pointer: pointer,
	}
}

// NotAcceptable is returned when the Accept header matches no supported type.
func NotAcceptable() *Error {
	return &Error{
		Status: http.StatusNotAcceptable,
		Code:   "not_acceptable",
		Title:  "The requested media type cannot be served",
		Detail: "This API serves application/vnd.api+json and application/json only.",
	}
}

// UnsupportedMediaType is returned for request bodies of the wrong type.
func UnsupportedMediaType(got string) *Error {
	return &Error{
		Status: http.StatusUnsupportedMediaType,
		Code:   "unsupported_media_type",
		Title:  fmt.Sprintf("Content-Type %s is not supported", got),
		Detail: "Request bodies must be encoded as application/vnd.api+json.",
	}
}

// RequiredContentType is returned when a body-carrying request omits the
// Content-Type header entirely.
func RequiredContentType() *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   "required_content_type",
		Title:  "A Content-Type header is required",
		Detail: "POST, PUT and PATCH requests must declare a Content-Type.",
	}
}

// AsError extracts an *Error from an error chain, or wraps the error into a
// generic Internal error.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}
