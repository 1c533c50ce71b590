package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/meshwork-app/meshwork-api/pkg/access"
	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/httputil"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/schema"
	"github.com/meshwork-app/meshwork-api/pkg/store"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

// storeError maps persistence failures onto the API taxonomy.
func (s *Server) storeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierror.NotFound()
	}
	return err
}

// userResource renders a user through the named projection.
func userResource(u *model.User, view schema.Projection) *httputil.Resource {
	return &httputil.Resource{
		Type:       model.UserType,
		ID:         u.ID,
		Attributes: u.Project(model.Users.MustProjection(view)),
	}
}

// listUsers answers GET /users with public projections. Filters are limited
// to searchable attributes and sorting to schema fields; both are rejected
// with 400 otherwise.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{}
	query := r.URL.Query()

	for key, values := range query {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		attr := key[len("filter[") : len(key)-1]
		if len(values) > 0 {
			if opts.Filter == nil {
				opts.Filter = make(map[string]string)
			}
			opts.Filter[attr] = values[0]
		}
	}

	if sortParam := query.Get("sort"); sortParam != "" {
		opts.Sort = strings.Split(sortParam, ",")
	}
	opts.Cursor = query.Get("page[after]")
	if limit := query.Get("page[limit]"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			s.fail(w, r, apierror.BadRequest("invalid_parameter",
				"page[limit] must be a positive integer",
				"The pagination limit could not be parsed."))
			return
		}
		opts.Limit = n
	}
	if snapshot := query.Get("page[snapshot]"); snapshot != "" {
		ts, err := time.Parse(time.RFC3339, snapshot)
		if err != nil {
			s.fail(w, r, apierror.BadRequest("invalid_parameter",
				"page[snapshot] must be an RFC 3339 timestamp",
				"The pagination snapshot could not be parsed."))
			return
		}
		opts.Snapshot = &ts
	}

	users, err := s.stores.Users.List(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resources := make([]*httputil.Resource, 0, len(users))
	for _, u := range users {
		resources = append(resources, userResource(u, schema.Public))
	}
	httputil.WriteResources(w, http.StatusOK, resources)
}

// createUser is signup. Mandatory attributes minus server-generated ones
// must be present; a missing password is generated rather than rejected.
// Returns the owner projection with a Location header.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	res, err := httputil.DecodeResource(r, model.UserType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	changes := res.Changes()

	if err := access.FilterEditable(model.Users, changes); err != nil {
		s.fail(w, r, err)
		return
	}

	if v, ok := changes["password"]; !ok || v == nil {
		pw, err := password.Generate(2 * password.MinLength)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		changes["password"] = pw
	}

	if err := access.RequireMandatory(model.Users, changes); err != nil {
		s.fail(w, r, err)
		return
	}
	if errs := model.ValidateUserChanges(changes); len(errs) > 0 {
		s.failValidation(w, errs)
		return
	}

	derived, err := model.DeriveOnWrite(r.Context(), nil, changes, s.hasher.Hash)
	if err != nil {
		s.failDerive(w, r, err)
		return
	}

	u, err := s.stores.Users.Create(r.Context(), derived)
	if err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	observability.UsersCreated.Inc()

	// Side effects of signup are best-effort: the account exists even when
	// the welcome notification or the confirmation mail fails.
	if _, err := s.stores.Notifs.Create(r.Context(), u.ID, model.NotifKindPersonal, model.NotifArgWelcome); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("welcome notif failed")
	}
	if confirmToken, err := s.tokens.Issue(token.KindEmail, u); err == nil {
		observability.TokensIssued.WithLabelValues(string(token.KindEmail)).Inc()
		if err := s.mail.SendSignup(r.Context(), u, confirmToken); err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("signup mail failed")
		}
	} else {
		observability.FromContext(r.Context()).WithError(err).Error("confirm token issue failed")
	}

	httputil.WriteResource(w, http.StatusCreated,
		userResource(u, schema.Owner), s.origin+"/users/"+u.ID)
}

// readUser answers GET /users/{id}: owner view for self, public view for
// everyone else including admins, 404 for missing and soft-deleted rows
// alike.
func (s *Server) readUser(w http.ResponseWriter, r *http.Request) {
	id, _ := access.FromContext(r.Context())

	u, err := s.stores.Users.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	if err := access.Available(u); err != nil {
		s.fail(w, r, err)
		return
	}

	httputil.WriteResource(w, http.StatusOK, userResource(u, access.SelectView(id, u)), "")
}

// updateUser answers PATCH /users/{id}. Owner or admin only; the change set
// must stay inside the editable projection; any offender rejects the whole
// request.
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := access.FromContext(r.Context())

	u, err := s.stores.Users.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	if err := access.AuthorizeOwnerOrAdmin(id, u); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := httputil.DecodeResource(r, model.UserType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	changes := res.Changes()

	if err := access.FilterEditable(model.Users, changes); err != nil {
		s.fail(w, r, err)
		return
	}
	if errs := model.ValidateUserChanges(changes); len(errs) > 0 {
		s.failValidation(w, errs)
		return
	}

	derived, err := model.DeriveOnWrite(r.Context(), u, changes, s.hasher.Hash)
	if err != nil {
		s.failDerive(w, r, err)
		return
	}
	if len(derived) == 0 {
		httputil.WriteNoContent(w)
		return
	}

	if _, err := s.stores.Users.Update(r.Context(), u.ID, derived); err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	httputil.WriteNoContent(w)
}

// deleteUser answers DELETE /users/{id} with a soft delete. A repeated
// delete sees the soft-deleted row and answers 404.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := access.FromContext(r.Context())

	u, err := s.stores.Users.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	if err := access.AuthorizeOwnerOrAdmin(id, u); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.stores.Users.SoftDelete(r.Context(), u.ID); err != nil {
		s.fail(w, r, s.storeError(err))
		return
	}
	httputil.WriteNoContent(w)
}

// failValidation renders one error per offending attribute.
func (s *Server) failValidation(w http.ResponseWriter, errs []*model.ValidationError) {
	apiErrs := make([]*apierror.Error, 0, len(errs))
	for _, e := range errs {
		apiErrs = append(apiErrs, apierror.ValidationFailed(
			e.Attr, e.Msg, "/data/attributes/"+e.Attr))
	}
	httputil.WriteErrors(w, apiErrs)
}

// failDerive translates DeriveOnWrite failures, which are validation errors
// for a rejected password and internal errors otherwise.
func (s *Server) failDerive(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		s.fail(w, r, apierror.ValidationFailed(
			verr.Attr, verr.Msg, "/data/attributes/"+verr.Attr))
		return
	}
	s.fail(w, r, err)
}
