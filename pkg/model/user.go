// Package model defines the persisted entities and their attribute tables.
//
// Each entity declares its schema table at init; the tables drive every
// visibility and editability decision made by the API layer, so the structs
// here carry no serialization tags for client-facing payloads — projections
// are built dynamically from the schema.
package model

import (
	"fmt"
	"time"

	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/schema"
)

// UserType is the JSON:API resource type of users.
const UserType = "users"

// Users is the attribute table of the users entity. Declaration order
// determines attribute order in every rendered projection.
var Users = schema.NewTable(UserType,
	schema.Descriptor{Name: "id", Type: schema.TypeUUID, HasDefault: true},

	// Authentication attributes
	schema.Descriptor{Name: "username", Type: schema.TypeCitext, NotNull: true, Unique: true, Searchable: true},
	schema.Descriptor{Name: "password_hash", Type: schema.TypeString, Restricted: true},
	schema.Descriptor{Name: "password", Type: schema.TypeVirtual},

	// Personal attributes
	schema.Descriptor{Name: "firstname", Type: schema.TypeString},
	schema.Descriptor{Name: "lastname", Type: schema.TypeString},
	schema.Descriptor{Name: "email", Type: schema.TypeCitext, NotNull: true, Unique: true, Private: true},
	schema.Descriptor{Name: "phone", Type: schema.TypeString, Unique: true, Private: true},
	schema.Descriptor{Name: "jobtitle", Type: schema.TypeString},
	schema.Descriptor{Name: "department", Type: schema.TypeString},

	// Flags
	schema.Descriptor{Name: "is_admin", Type: schema.TypeBoolean, HasDefault: true, ReadOnly: true},
	schema.Descriptor{Name: "is_confirmed", Type: schema.TypeBoolean, HasDefault: true, Private: true, ReadOnly: true},

	// Timestamps
	schema.Descriptor{Name: "created_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "updated_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "deleted_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
)

func init() {
	schema.Register(Users)
}

// User is one row of the users table. Nullable profile columns are pointers;
// the virtual password attribute never appears here because it is consumed by
// DeriveOnWrite before persistence.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Firstname    *string
	Lastname     *string
	Email        string
	Phone        *string
	Jobtitle     *string
	Department   *string
	IsAdmin      bool
	IsConfirmed  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Deleted reports whether the user has been soft-deleted.
func (u *User) Deleted() bool { return u.DeletedAt != nil }

// CheckPassword compares a plaintext password with the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return password.Verify(u.PasswordHash, plaintext)
}

// Secret derives the per-user signing secret for reset tokens from the
// password hash and the creation timestamp. Changing the password changes
// the derivation input, which invalidates every previously issued reset
// token without any revocation bookkeeping.
func (u *User) Secret() string {
	return fmt.Sprintf("%s-%d", u.PasswordHash, u.CreatedAt.UnixMilli())
}

// ConfirmSecret derives the per-user signing secret for email-confirmation
// tokens from the email, the confirmed flag and the creation timestamp.
// Confirming the address (or changing it) invalidates outstanding
// confirmation tokens the same way Secret does for reset tokens.
func (u *User) ConfirmSecret() string {
	return fmt.Sprintf("%s-%t-%d", u.Email, u.IsConfirmed, u.CreatedAt.UnixMilli())
}

// Attr returns the named attribute value as it should appear in a rendered
// projection. Unknown names return nil; restricted attributes are resolvable
// here but are filtered out by every client-facing projection.
func (u *User) Attr(name string) interface{} {
	switch name {
	case "id":
		return u.ID
	case "username":
		return u.Username
	case "password_hash":
		return u.PasswordHash
	case "firstname":
		return strPtr(u.Firstname)
	case "lastname":
		return strPtr(u.Lastname)
	case "email":
		return u.Email
	case "phone":
		return strPtr(u.Phone)
	case "jobtitle":
		return strPtr(u.Jobtitle)
	case "department":
		return strPtr(u.Department)
	case "is_admin":
		return u.IsAdmin
	case "is_confirmed":
		return u.IsConfirmed
	case "created_at":
		return u.CreatedAt
	case "updated_at":
		return u.UpdatedAt
	case "deleted_at":
		return timePtr(u.DeletedAt)
	}
	return nil
}

// Project renders the named attributes into a map, preserving nil for unset
// nullable columns.
func (u *User) Project(names []string) map[string]interface{} {
	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		out[name] = u.Attr(name)
	}
	return out
}

func strPtr(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
