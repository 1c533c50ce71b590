package apierror

import (
	"fmt"
	"net/http"
)

// Authentication and token failures. Token failures answer 401; grant
// failures answer 400 per RFC 6749 section 5.2 and render in the plain OAuth
// envelope rather than the JSON:API one.

// OAuthError is a failure of the password-grant flow.
type OAuthError struct {
	ErrorCode   string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *OAuthError) Error() string { return e.ErrorCode }

// Status is always 400 for grant failures.
func (e *OAuthError) Status() int { return http.StatusBadRequest }

// InvalidRequest reports malformed or missing grant parameters.
func InvalidRequest() *OAuthError {
	return &OAuthError{
		ErrorCode:   "invalid_request",
		Description: "Some parameters are malformed or missing.",
		URI:         "https://tools.ietf.org/html/rfc6749#section-4.3.2",
	}
}

// InvalidGrant reports unknown or wrong credentials without distinguishing
// the two.
func InvalidGrant() *OAuthError {
	return &OAuthError{
		ErrorCode:   "invalid_grant",
		Description: "The Auth server was not able to authenticate you.",
	}
}

// UnsupportedGrantType reports any grant type other than password.
func UnsupportedGrantType() *OAuthError {
	return &OAuthError{
		ErrorCode: "unsupported_grant_type",
		Description: "This authentication server supports only the" +
			" `password` grant type.",
	}
}

func unauthorized(code, title, detail string) *Error {
	return &Error{
		Status: http.StatusUnauthorized,
		Code:   code,
		Title:  title,
		Detail: detail,
	}
}

// MissingAuthorizationHeader: no authorization header on a protected route.
func MissingAuthorizationHeader() *Error {
	return unauthorized(
		"missing_authorization_header",
		"An Authorization header is required",
		"Provide an Authorization header of the form `Bearer <token>`.",
	)
}

// MalformedAuthorizationHeader: header present but not `<scheme> <token>`.
func MalformedAuthorizationHeader() *Error {
	return unauthorized(
		"malformatted_authorization_header",
		"The Authorization header is malformatted",
		"The Authorization header must be of the form `Bearer <token>`.",
	)
}

// UnsupportedScheme: a scheme other than bearer.
func UnsupportedScheme(scheme string) *Error {
	return unauthorized(
		"unhandled_authorization_scheme",
		fmt.Sprintf("The authorization scheme %q is not handled", scheme),
		"This API authenticates requests with the Bearer scheme only.",
	)
}

// MissingTokenType: the decoded claims carry no type.
func MissingTokenType() *Error {
	return unauthorized(
		"missing_token_type",
		"The token you provided has no type",
		"Tokens without a type claim cannot be accepted.",
	)
}

// RejectedTokenType: the token verifies but its type is not allowed here.
func RejectedTokenType(tokenType string) *Error {
	return unauthorized(
		"rejected_token_type",
		fmt.Sprintf("The token type %s has been rejected", tokenType),
		"The token provided is valid but its type does not grant you access"+
			" to this resource or functionality.",
	)
}

// TokenExpired: the token is past its expiry.
func TokenExpired() *Error {
	return unauthorized(
		"expired_token",
		"The token you provided is expired",
		"Request a fresh token and retry.",
	)
}

// TokenInvalid: bad signature, bad format, or wrong algorithm.
func TokenInvalid(cause error) *Error {
	e := unauthorized(
		"invalid_token",
		"The token you provided was invalid",
		"We were unable to validate your token.",
	)
	e.cause = cause
	return e
}
