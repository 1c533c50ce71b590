// Package token issues and verifies the three JWT kinds used by the API.
//
// Access tokens are signed with the service-wide secret. Reset and
// email-confirmation tokens are signed with per-user derived secrets
// (model.User.Secret and ConfirmSecret), so completing the action the
// token authorizes changes the derivation input and invalidates every
// outstanding token of that kind without server-side revocation state.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meshwork-app/meshwork-api/pkg/model"
)

// Kind names the purpose of a token. It travels in the "type" claim and is
// checked against an allow-list at every verification site.
type Kind string

const (
	KindAccess Kind = "access"
	KindReset  Kind = "reset"
	KindEmail  Kind = "email"
)

// DefaultExpiry bounds the lifetime of every issued token.
const DefaultExpiry = 24 * time.Hour

var (
	// ErrInvalidKind is returned when issuing with an unknown kind.
	ErrInvalidKind = errors.New("token: invalid token kind")
	// ErrSubjectDeleted is returned when issuing for a soft-deleted user.
	ErrSubjectDeleted = errors.New("token: subject is deleted")
	// ErrExpired is returned by Verify for structurally valid but expired tokens.
	ErrExpired = errors.New("token: token expired")
	// ErrInvalid is returned by Verify for every other verification failure.
	ErrInvalid = errors.New("token: token invalid")
)

// Claims is the payload carried by every token the service issues.
type Claims struct {
	IsAdmin bool   `json:"is_admin"`
	Type    string `json:"type"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. The configured secret signs access
// tokens; reset and email tokens take their secret per call.
type Service struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// Option adjusts Service construction.
type Option func(*Service)

// WithExpiry overrides the default token lifetime.
func WithExpiry(d time.Duration) Option {
	return func(s *Service) { s.expiry = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a token service signing access tokens with secret.
func NewService(secret string, opts ...Option) *Service {
	s := &Service{
		secret: []byte(secret),
		expiry: DefaultExpiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expiry reports the configured token lifetime.
func (s *Service) Expiry() time.Duration { return s.expiry }

// Issue signs a token of the given kind for the user. Access tokens use the
// service secret; reset tokens use u.Secret(); email tokens use
// u.ConfirmSecret() and additionally embed the email being confirmed.
func (s *Service) Issue(kind Kind, u *model.User) (string, error) {
	if u.Deleted() {
		return "", ErrSubjectDeleted
	}

	now := s.now()
	claims := Claims{
		IsAdmin: u.IsAdmin,
		Type:    string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	var secret []byte
	switch kind {
	case KindAccess:
		secret = s.secret
	case KindReset:
		secret = []byte(u.Secret())
	case KindEmail:
		secret = []byte(u.ConfirmSecret())
		claims.Email = u.Email
	default:
		return "", ErrInvalidKind
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and validates a token against the service secret. Only HS512
// signatures are accepted; asserting the method before handing out the key
// closes the algorithm-confusion hole.
func (s *Service) Verify(raw string) (*Claims, error) {
	return verify(raw, s.secret, s.now)
}

// VerifyWith validates a token against a caller-supplied secret. Used for
// reset and email tokens, whose secrets are derived from the subject's
// current state.
func (s *Service) VerifyWith(raw, secret string) (*Claims, error) {
	return verify(raw, []byte(secret), s.now)
}

// Subject extracts the sub claim without verifying the signature. Reset and
// email token verification needs the subject first to load the user whose
// state derives the secret; the caller must still call VerifyWith before
// trusting anything else in the token.
func (s *Service) Subject(raw string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims.Subject, nil
}

func verify(raw string, secret []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithTimeFunc(now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims, nil
}
