// Package httputil renders and parses the JSON:API wire format used by the
// whole HTTP surface, plus the one deliberate exception: OAuth grant
// failures, which use the plain RFC 6749 envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
)

// MediaType is the JSON:API content type served and accepted by the API.
const MediaType = "application/vnd.api+json"

// Version is the JSON:API version advertised in every document.
const Version = "1.0"

// JSONAPI is the top-level jsonapi member.
type JSONAPI struct {
	Version string `json:"version"`
}

// Resource is one JSON:API resource object.
type Resource struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Document is a JSON:API document with a single primary resource.
type Document struct {
	JSONAPI JSONAPI   `json:"jsonapi"`
	Data    *Resource `json:"data"`
}

// ListDocument is a JSON:API document whose primary data is a collection.
type ListDocument struct {
	JSONAPI JSONAPI     `json:"jsonapi"`
	Data    []*Resource `json:"data"`
}

// ErrorObject is one JSON:API error member. Status is serialized as a string
// per the JSON:API error object shape.
type ErrorObject struct {
	Status string       `json:"status"`
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
}

// ErrorSource points at the offending document member.
type ErrorSource struct {
	Pointer string `json:"pointer"`
}

// ErrorDocument is a JSON:API document carrying errors instead of data.
type ErrorDocument struct {
	JSONAPI JSONAPI        `json:"jsonapi"`
	Errors  []*ErrorObject `json:"errors"`
}

// WriteResource renders one resource with the given status. A non-empty
// location is sent as a Location header, for 201 responses.
func WriteResource(w http.ResponseWriter, status int, res *Resource, location string) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	writeDocument(w, status, Document{
		JSONAPI: JSONAPI{Version: Version},
		Data:    res,
	})
}

// WriteResources renders a collection. An empty slice renders as [] rather
// than null.
func WriteResources(w http.ResponseWriter, status int, resources []*Resource) {
	if resources == nil {
		resources = []*Resource{}
	}
	writeDocument(w, status, ListDocument{
		JSONAPI: JSONAPI{Version: Version},
		Data:    resources,
	})
}

// WriteNoContent answers 204 with an empty body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders any error. OAuth grant failures use the raw RFC 6749
// envelope; everything else is coerced into the JSON:API error document, with
// unknown errors collapsing to a 500 that leaks nothing.
func WriteError(w http.ResponseWriter, err error) {
	var oauthErr *apierror.OAuthError
	if errors.As(err, &oauthErr) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(oauthErr.Status())
		json.NewEncoder(w).Encode(oauthErr) //nolint:errcheck
		return
	}

	apiErr := apierror.AsError(err)
	obj := &ErrorObject{
		Status: strconv.Itoa(apiErr.Status),
		Code:   apiErr.Code,
		Title:  apiErr.Title,
		Detail: apiErr.Detail,
	}
	if apiErr.Pointer != "" {
		obj.Source = &ErrorSource{Pointer: apiErr.Pointer}
	}
	writeDocument(w, apiErr.Status, ErrorDocument{
		JSONAPI: JSONAPI{Version: Version},
		Errors:  []*ErrorObject{obj},
	})
}

// WriteErrors renders several errors in one document under the status of the
// first.
func WriteErrors(w http.ResponseWriter, errs []*apierror.Error) {
	if len(errs) == 0 {
		WriteError(w, apierror.Internal(errors.New("empty error list")))
		return
	}
	objs := make([]*ErrorObject, 0, len(errs))
	for _, e := range errs {
		obj := &ErrorObject{
			Status: strconv.Itoa(e.Status),
			Code:   e.Code,
			Title:  e.Title,
			Detail: e.Detail,
		}
		if e.Pointer != "" {
			obj.Source = &ErrorSource{Pointer: e.Pointer}
		}
		objs = append(objs, obj)
	}
	writeDocument(w, errs[0].Status, ErrorDocument{
		JSONAPI: JSONAPI{Version: Version},
		Errors:  objs,
	})
}

func writeDocument(w http.ResponseWriter, status int, doc interface{}) {
	w.Header().Set("Content-Type", MediaType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc) //nolint:errcheck
}
