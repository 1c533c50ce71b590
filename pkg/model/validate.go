package model

import (
	"fmt"
	"regexp"
)

// ValidationError reports one malformed attribute value.
type ValidationError struct {
	Attr string
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Attr, e.Msg)
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether the string looks like an email address.
func ValidEmail(s string) bool { return emailRe.MatchString(s) }

// minimum lengths from the users table declaration
const (
	minUsernameLen = 3
	minNameLen     = 2
)

// ValidateUserChanges checks attribute values in a change set against the
// per-field rules of the users table. The password policy is checked by
// DeriveOnWrite instead, so both creation and update funnel through one
// place. Returns one error per offending attribute.
func ValidateUserChanges(changes Changes) []*ValidationError {
	var errs []*ValidationError

	if v, ok := stringChange(changes, "username"); ok && len(v) < minUsernameLen {
		errs = append(errs, &ValidationError{
			Attr: "username",
			Msg:  fmt.Sprintf("must be at least %d characters in length", minUsernameLen),
		})
	}
	for _, attr := range []string{"firstname", "lastname"} {
		if v, ok := stringChange(changes, attr); ok && v != "" && len(v) < minNameLen {
			errs = append(errs, &ValidationError{
				Attr: attr,
				Msg:  fmt.Sprintf("must be at least %d characters in length", minNameLen),
			})
		}
	}
	if v, ok := stringChange(changes, "email"); ok && !ValidEmail(v) {
		errs = append(errs, &ValidationError{Attr: "email", Msg: "is not a valid email"})
	}

	return errs
}

func stringChange(changes Changes, attr string) (string, bool) {
	raw, ok := changes[attr]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// Sanitize normalizes incoming attribute values: empty strings become nil so
// nullable columns are cleared rather than stored as "".
func Sanitize(changes Changes) Changes {
	out := make(Changes, len(changes))
	for k, v := range changes {
		if s, ok := v.(string); ok && s == "" {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out
}
