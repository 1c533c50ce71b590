package model

import (
	"time"

	"github.com/meshwork-app/meshwork-api/pkg/schema"
)

// ConnectionType is the JSON:API resource type of connections.
const ConnectionType = "connections"

// Connections is the attribute table of the connections entity. Connection
// rows record transient realtime sessions bound to a user; they carry no
// independent business logic beyond their schema.
var Connections = schema.NewTable(ConnectionType,
	schema.Descriptor{Name: "id", Type: schema.TypeUUID, HasDefault: true},
	schema.Descriptor{Name: "key", Type: schema.TypeString, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "used", Type: schema.TypeBoolean, HasDefault: true, Private: true, ReadOnly: true},
	schema.Descriptor{Name: "created_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "updated_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "deleted_at", Type: schema.TypeDate, ReadOnly: true, Restricted: true},
	schema.Descriptor{Name: "user_id", Type: schema.TypeString, ReadOnly: true},
)

func init() {
	schema.Register(Connections)
}

// Connection is one row of the connections table.
type Connection struct {
	ID        string
	Key       *string
	Used      bool
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted reports whether the connection has been soft-deleted.
func (c *Connection) Deleted() bool { return c.DeletedAt != nil }
