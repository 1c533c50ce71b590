package model

import (
	"time"

	"github.com/meshwork-app/meshwork-api/pkg/schema"
)

// NotifType is the JSON:API resource type of notifications.
const NotifType = "notifs"

// Notif kinds and arguments. Kind describes the audience, Arg the payload
// category shown to the client.
const (
	NotifKindPersonal  = "personal"
	NotifKindGroup     = "group"
	NotifKindBroadcast = "broadcast"

	NotifArgWarning   = "warning"
	NotifArgUpdate    = "update"
	NotifArgNews      = "news"
	NotifArgProfileUp = "profileUp"
	NotifArgWelcome   = "welcome"
)

// Notifs is the attribute table of the notifs entity.
var Notifs = schema.NewTable(NotifType,
	schema.Descriptor{Name: "id", Type: schema.TypeUUID, HasDefault: true},
	schema.Descriptor{Name: "kind", Type: schema.TypeString, HasDefault: true, ReadOnly: true},
	schema.Descriptor{Name: "arg", Type: schema.TypeString, HasDefault: true, ReadOnly: true},
	schema.Descriptor{Name: "used", Type: schema.TypeBoolean, HasDefault: true, Private: true, ReadOnly: true},
	schema.Descriptor{Name: "created_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "updated_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "deleted_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "user_id", Type: schema.TypeString, ReadOnly: true},
)

func init() {
	schema.Register(Notifs)
}

// Notif is one row of the notifs table.
type Notif struct {
	ID        string
	Kind      string
	Arg       string
	Used      bool
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the notification has been soft-deleted.
func (n *Notif) Deleted() bool { return n.DeletedAt != nil }
