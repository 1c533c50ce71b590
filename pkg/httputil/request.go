package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/model"
)

// maxBodyBytes bounds request bodies; profile payloads are tiny.
const maxBodyBytes = 1 << 20

// DecodeResource parses a single-resource JSON:API document from the request
// body and checks its type member.
func DecodeResource(r *http.Request, wantType string) (*Resource, error) {
	var doc struct {
		Data *Resource `json:"data"`
	}
	if err := decodeBody(r, &doc); err != nil {
		return nil, err
	}
	if doc.Data == nil {
		return nil, apierror.MissingParameter("data", "/data")
	}
	if doc.Data.Type != wantType {
		return nil, apierror.BadRequest("invalid_resource_type",
			"The document type does not match the endpoint",
			"The data.type member must be \""+wantType+"\".").
			WithPointer("/data/type")
	}
	return doc.Data, nil
}

// Changes converts the resource attributes to a model change set with empty
// strings normalized to nil.
func (res *Resource) Changes() model.Changes {
	return model.Sanitize(model.Changes(res.Attributes))
}

// DecodeForm parses the OAuth token endpoint body, which predates the
// JSON:API surface: RFC 6749 form encoding is accepted alongside a flat JSON
// object with the same field names.
func DecodeForm(r *http.Request) (map[string]string, error) {
	ct := r.Header.Get("Content-Type")
	if MediaTypeOf(ct) == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, apierror.InvalidRequest()
		}
		out := make(map[string]string, len(r.PostForm))
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				out[k] = vs[0]
			}
		}
		return out, nil
	}

	var fields map[string]string
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		return nil, apierror.InvalidRequest()
	}
	return fields, nil
}

// MediaTypeOf strips parameters from a Content-Type or Accept member and
// lowercases it.
func MediaTypeOf(ct string) string {
	base, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func decodeBody(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.MissingParameter("data", "/data")
		}
		return apierror.BadRequest("malformed_body",
			"The request body could not be parsed",
			"Request bodies must be valid JSON:API documents.").WithCause(err)
	}
	return nil
}
