// Package middleware holds the HTTP cross-cutting layers: the bearer-token
// auth gate, media-type negotiation, request logging and identification, and
// Redis-backed rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/meshwork-app/meshwork-api/pkg/access"
	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/httputil"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

// AuthGate authenticates requests with a bearer token and attaches the
// decoded identity to the context. The gate walks a fixed sequence: header
// presence, header shape, scheme, signature verification, then type-claim
// checks against the allowed kinds. Every failure answers 401. Only the
// kinds listed are accepted; routes normally pass token.KindAccess alone.
func AuthGate(tokens *token.Service, allowed ...token.Kind) func(http.Handler) http.Handler {
	kinds := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		kinds[string(k)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteError(w, apierror.MissingAuthorizationHeader())
				return
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || scheme == "" || raw == "" {
				httputil.WriteError(w, apierror.MalformedAuthorizationHeader())
				return
			}
			if !strings.EqualFold(scheme, "bearer") {
				httputil.WriteError(w, apierror.UnsupportedScheme(scheme))
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				httputil.WriteError(w, translateTokenError(err))
				return
			}

			if claims.Type == "" {
				httputil.WriteError(w, apierror.MissingTokenType())
				return
			}
			if !kinds[claims.Type] {
				httputil.WriteError(w, apierror.RejectedTokenType(claims.Type))
				return
			}

			ctx := access.NewContext(r.Context(), access.FromClaims(claims))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// translateTokenError maps token service failures onto the 401 taxonomy.
func translateTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return apierror.TokenExpired()
	default:
		return apierror.TokenInvalid(err)
	}
}
