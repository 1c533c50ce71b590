// Package schema implements the declarative per-attribute metadata tables
// that drive attribute visibility and access control.
//
// Each entity type declares one ordered table of field descriptors. All
// visibility views (public, owner, mandatory, searchable, editable) are pure
// projections of that table; no view may depend on a live instance. Tables
// are registered during package init and frozen before the first request, so
// projection lookups are lock-free reads for the lifetime of the process.
package schema

import "fmt"

// DataType is the storage type of an attribute.
type DataType string

const (
	TypeUUID    DataType = "uuid"
	TypeString  DataType = "string"
	TypeCitext  DataType = "citext" // case-insensitive text (Postgres citext)
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"

	// TypeVirtual marks an attribute that is never persisted. Virtual
	// attributes still participate in the mandatory and editable views.
	TypeVirtual DataType = "virtual"
)

// Descriptor declares one attribute of an entity.
//
// Flag semantics:
//   - NotNull: the column rejects NULL (drives the mandatory view)
//   - HasDefault: the store supplies a value when none is given
//   - ReadOnly: never writable through the API
//   - Private: visible to the owner only, hidden from the public view
//   - Restricted: never exposed through the API at all
//   - Searchable: usable in list filters
type Descriptor struct {
	Name       string
	Type       DataType
	NotNull    bool
	HasDefault bool
	ReadOnly   bool
	Private    bool
	Restricted bool
	Searchable bool
	Unique     bool
}

// Table is the immutable, ordered attribute declaration of one entity type.
type Table struct {
	entity string
	fields []Descriptor
	byName map[string]int

	projections map[Projection][]string
}

// NewTable builds an attribute table for an entity type. Declaration order is
// preserved and determines the iteration order of every projection.
// Duplicate or unnamed fields are configuration errors and panic.
func NewTable(entity string, fields ...Descriptor) *Table {
	if entity == "" {
		panic("schema: entity type name is required")
	}
	if len(fields) == 0 {
		panic(fmt.Sprintf("schema: entity type %q declares no attributes", entity))
	}

	t := &Table{
		entity: entity,
		fields: fields,
		byName: make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Name == "" {
			panic(fmt.Sprintf("schema: entity type %q declares an unnamed attribute", entity))
		}
		if _, dup := t.byName[f.Name]; dup {
			panic(fmt.Sprintf("schema: entity type %q declares attribute %q twice", entity, f.Name))
		}
		t.byName[f.Name] = i
	}

	t.projections = map[Projection][]string{
		Public:     t.project(isPublic),
		Owner:      t.project(isOwner),
		Mandatory:  t.project(isMandatory),
		Searchable: t.project(isSearchable),
		Editable:   t.project(isEditable),
	}
	return t
}

// Entity returns the entity type name this table describes.
func (t *Table) Entity() string { return t.entity }

// Fields returns the names of all declared attributes in declaration order.
func (t *Table) Fields() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the descriptor for an attribute name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.fields[i], true
}

// Has reports whether the table declares the attribute.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

func (t *Table) project(keep func(Descriptor) bool) []string {
	var names []string
	for _, f := range t.fields {
		if keep(f) {
			names = append(names, f.Name)
		}
	}
	return names
}
