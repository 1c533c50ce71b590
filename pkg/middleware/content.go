package middleware

import (
	"net/http"
	"strings"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/httputil"
)

// acceptable are the media types the API can render.
var acceptable = map[string]bool{
	httputil.MediaType: true,
	"application/json": true,
	"application/*":    true,
	"*/*":              true,
}

// Negotiate enforces media types on the JSON:API surface. Requests whose
// Accept header matches nothing we serve get 406. Body-carrying requests
// must declare a Content-Type (400 when absent) and it must be the JSON:API
// type or plain JSON (415 otherwise).
func Negotiate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "" && !accepts(accept) {
			httputil.WriteError(w, apierror.NotAcceptable())
			return
		}

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct == "" {
				httputil.WriteError(w, apierror.RequiredContentType())
				return
			}
			mt := httputil.MediaTypeOf(ct)
			// The token endpoints additionally take RFC 6749 form bodies.
			if mt == "application/x-www-form-urlencoded" {
				break
			}
			if mt != httputil.MediaType && mt != "application/json" {
				httputil.WriteError(w, apierror.UnsupportedMediaType(mt))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// accepts reports whether any member of the Accept header matches a type we
// serve.
func accepts(header string) bool {
	for _, member := range strings.Split(header, ",") {
		if acceptable[httputil.MediaTypeOf(member)] {
			return true
		}
	}
	return false
}
