package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meshwork-app/meshwork-api/pkg/httputil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNegotiateAccept(t *testing.T) {
	handler := Negotiate(okHandler())

	cases := []struct {
		accept string
		status int
	}{
		{"", http.StatusOK},
		{httputil.MediaType, http.StatusOK},
		{"application/json", http.StatusOK},
		{"*/*", http.StatusOK},
		{"text/html, application/json;q=0.9", http.StatusOK},
		{"text/html", http.StatusNotAcceptable},
		{"application/xml", http.StatusNotAcceptable},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		if tc.accept != "" {
			req.Header.Set("Accept", tc.accept)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "accept %q", tc.accept)
	}
}

func TestNegotiateContentType(t *testing.T) {
	handler := Negotiate(okHandler())

	cases := []struct {
		name        string
		contentType string
		status      int
	}{
		{"missing", "", http.StatusBadRequest},
		{"jsonapi", httputil.MediaType, http.StatusOK},
		{"json", "application/json; charset=utf-8", http.StatusOK},
		{"form", "application/x-www-form-urlencoded", http.StatusOK},
		{"xml", "application/xml", http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{}"))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestNegotiateSkipsBodyCheckOnGet(t *testing.T) {
	handler := Negotiate(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
