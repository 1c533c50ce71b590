package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/httputil"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/store"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

// tokenResponse is the password-grant success payload. Plain JSON, not
// JSON:API, matching the OAuth convention of the error envelope.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ID          string `json:"id"`
}

// authorize implements the password grant. The checks run strictly in
// sequence and return on first failure; credential failures collapse into
// one invalid_grant answer so the endpoint does not reveal which half was
// wrong.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeForm(r)
	if err != nil {
		observability.AuthAttempts.WithLabelValues("invalid_request").Inc()
		s.fail(w, r, err)
		return
	}

	grantType := fields["grant_type"]
	username := fields["username"]
	pass := fields["password"]

	if grantType == "" || username == "" || pass == "" {
		observability.AuthAttempts.WithLabelValues("invalid_request").Inc()
		s.fail(w, r, apierror.InvalidRequest())
		return
	}
	if grantType != "password" {
		observability.AuthAttempts.WithLabelValues("unsupported_grant_type").Inc()
		s.fail(w, r, apierror.UnsupportedGrantType())
		return
	}

	u, err := s.stores.Users.FindLiveByUsernameOrEmail(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			observability.AuthAttempts.WithLabelValues("invalid_grant").Inc()
			s.fail(w, r, apierror.InvalidGrant())
			return
		}
		s.fail(w, r, err)
		return
	}
	if !u.CheckPassword(pass) {
		observability.AuthAttempts.WithLabelValues("invalid_grant").Inc()
		s.fail(w, r, apierror.InvalidGrant())
		return
	}

	raw, err := s.tokens.Issue(token.KindAccess, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	observability.AuthAttempts.WithLabelValues("ok").Inc()
	observability.TokensIssued.WithLabelValues(string(token.KindAccess)).Inc()

	// Each login opens a connection record for the realtime layer; the prune
	// job sweeps them. Failing to record one must not fail the login.
	if _, err := s.stores.Connections.Create(r.Context(), u.ID, uuid.NewString()); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("connection record failed")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	// RFC 6749 section 5.1: responses carrying tokens must not be cached.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tokenResponse{ //nolint:errcheck
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
		ID:          u.ID,
	})
}

// recover starts the password-reset flow. It answers 204 whether or not the
// address is known, so the endpoint cannot be used to probe for accounts.
func (s *Server) recover(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	email := fields["email"]
	if email == "" {
		s.fail(w, r, apierror.MissingParameter("email", "/email"))
		return
	}

	u, err := s.stores.Users.FindLiveByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			observability.FromContext(r.Context()).WithError(err).Error("recover lookup failed")
		}
		httputil.WriteNoContent(w)
		return
	}

	raw, err := s.tokens.Issue(token.KindReset, u)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("reset token issue failed")
		httputil.WriteNoContent(w)
		return
	}
	observability.TokensIssued.WithLabelValues(string(token.KindReset)).Inc()

	if err := s.mail.SendRecover(r.Context(), u, raw); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("recover mail failed")
	}
	httputil.WriteNoContent(w)
}

// reset consumes a reset token and sets a new password. The token subject is
// read unverified first, the subject's row is loaded, and only then is the
// signature checked against the secret derived from that row. A password
// change rotates the derived secret, so the token works at most once.
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw := fields["reset_token"]
	newPassword := fields["password"]
	if raw == "" {
		s.fail(w, r, apierror.TokenInvalid(errors.New("missing reset_token")))
		return
	}
	if newPassword == "" {
		s.fail(w, r, apierror.MissingParameter("password", "/password"))
		return
	}

	u, _, err := s.verifyDerived(r, raw, token.KindReset)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := password.Validate(newPassword); err != nil {
		s.fail(w, r, apierror.ValidationFailed("password", err.Error(), "/password"))
		return
	}
	hash, err := s.hasher.Hash(r.Context(), newPassword)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if _, err := s.stores.Users.Update(r.Context(), u.ID, model.Changes{
		"password_hash": hash,
	}); err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	httputil.WriteNoContent(w)
}

// confirm consumes an email-confirmation token. Confirming flips the flag
// the secret derives from, so the token self-invalidates.
func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	fields, err := httputil.DecodeForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw := fields["confirm_token"]
	if raw == "" {
		s.fail(w, r, apierror.TokenInvalid(errors.New("missing confirm_token")))
		return
	}

	u, _, err := s.verifyDerived(r, raw, token.KindEmail)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u.IsConfirmed {
		httputil.WriteNoContent(w)
		return
	}

	if _, err := s.stores.Users.Update(r.Context(), u.ID, model.Changes{
		"is_confirmed": true,
	}); err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	httputil.WriteNoContent(w)
}

// verifyDerived resolves a reset or email token whose secret is derived from
// the subject's current state.
func (s *Server) verifyDerived(r *http.Request, raw string, kind token.Kind) (*model.User, *token.Claims, error) {
	sub, err := s.tokens.Subject(raw)
	if err != nil {
		observability.TokenVerifications.WithLabelValues("invalid").Inc()
		return nil, nil, apierror.TokenInvalid(err)
	}

	u, err := s.stores.Users.GetLiveByID(r.Context(), sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apierror.NotFound()
		}
		return nil, nil, err
	}

	secret := u.Secret()
	if kind == token.KindEmail {
		secret = u.ConfirmSecret()
	}

	claims, err := s.tokens.VerifyWith(raw, secret)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			observability.TokenVerifications.WithLabelValues("expired").Inc()
			return nil, nil, apierror.TokenExpired()
		}
		observability.TokenVerifications.WithLabelValues("invalid").Inc()
		return nil, nil, apierror.TokenInvalid(err)
	}

	if claims.Type == "" {
		return nil, nil, apierror.MissingTokenType()
	}
	if claims.Type != string(kind) {
		observability.TokenVerifications.WithLabelValues("rejected_type").Inc()
		return nil, nil, apierror.RejectedTokenType(claims.Type)
	}

	observability.TokenVerifications.WithLabelValues("ok").Inc()
	return u, claims, nil
}
