// Package access decides who may see or change a resource and how much of
// it they see. It is deliberately free of HTTP concerns: handlers feed it
// the authenticated identity and the loaded resource, and it answers with
// an apierror or a projection name.
package access

import (
	"context"
	"sort"

	"github.com/meshwork-app/meshwork-api/pkg/apierror"
	"github.com/meshwork-app/meshwork-api/pkg/contextkeys"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/schema"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

// Identity is the authenticated caller as established by the auth gate.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// FromClaims builds an Identity from verified token claims.
func FromClaims(c *token.Claims) Identity {
	return Identity{UserID: c.Subject, IsAdmin: c.IsAdmin}
}

// NewContext attaches the identity to the request context.
func NewContext(ctx context.Context, id Identity) context.Context {
	return contextkeys.WithIdentity(ctx, id)
}

// FromContext retrieves the identity attached by the auth gate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextkeys.IdentityKey).(Identity)
	return id, ok
}

// Owns reports whether the identity owns the given user resource.
func (id Identity) Owns(u *model.User) bool { return id.UserID == u.ID }

// Available returns NotFound for absent or soft-deleted users. Deletion wins
// over every privilege: an admin looking at a soft-deleted row gets the same
// 404 as an anonymous caller, so deleted state is unobservable through the
// API.
func Available(u *model.User) error {
	if u == nil || u.Deleted() {
		return apierror.NotFound()
	}
	return nil
}

// AuthorizeOwnerOrAdmin grants access to the resource owner and to admins,
// after availability. Everyone else gets Forbidden.
func AuthorizeOwnerOrAdmin(id Identity, u *model.User) error {
	if err := Available(u); err != nil {
		return err
	}
	if id.IsAdmin || id.Owns(u) {
		return nil
	}
	return apierror.Forbidden()
}

// SelectView picks the projection a caller is entitled to. Only the owner
// sees the owner view; the admin flag widens what a caller may do, never
// what they see of somebody else's profile.
func SelectView(id Identity, u *model.User) schema.Projection {
	if id.Owns(u) {
		return schema.Owner
	}
	return schema.Public
}

// FilterEditable rejects any change set touching an attribute outside the
// table's editable projection. When the projection itself cannot be
// resolved, every attribute is rejected rather than admitted. The offending
// attribute reported is the lexicographically first one, so the response is
// deterministic regardless of map iteration order.
func FilterEditable(t *schema.Table, changes model.Changes) error {
	editable, err := t.Projection(schema.Editable)
	if err != nil {
		editable = nil
	}

	allowed := make(map[string]bool, len(editable))
	for _, name := range editable {
		allowed[name] = true
	}

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !allowed[name] {
			return apierror.InvalidAttribute(name, "/data/attributes/"+name)
		}
	}
	return nil
}

// RequireMandatory checks that every mandatory attribute of the table is
// present and non-nil in the change set, in declaration order.
func RequireMandatory(t *schema.Table, changes model.Changes) error {
	mandatory, err := t.Projection(schema.Mandatory)
	if err != nil {
		return apierror.Internal(err)
	}
	for _, name := range mandatory {
		if v, ok := changes[name]; !ok || v == nil {
			return apierror.MissingParameter(name, "/data/attributes/"+name)
		}
	}
	return nil
}
