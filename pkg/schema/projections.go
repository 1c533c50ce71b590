package schema

import "fmt"

// Projection names one visibility/editability view derived from a table.
type Projection string

const (
	// Public lists attributes shown to any authenticated requester.
	Public Projection = "public"
	// Owner lists attributes shown to the entity's own subject; always a
	// superset of Public.
	Owner Projection = "owner"
	// Mandatory lists attributes that must be supplied at creation.
	Mandatory Projection = "mandatory"
	// Searchable lists attributes usable as list filters.
	Searchable Projection = "searchable"
	// Editable lists attributes writable through update operations.
	Editable Projection = "editable"
)

func isPublic(d Descriptor) bool {
	return !d.Private && !d.Restricted && d.Type != TypeVirtual
}

func isOwner(d Descriptor) bool {
	return !d.Restricted && d.Type != TypeVirtual
}

// Virtual attributes are always mandatory: they only exist to feed derivation
// on write, so omitting them leaves the derived column unset.
func isMandatory(d Descriptor) bool {
	if d.Type == TypeVirtual {
		return true
	}
	return d.NotNull && !d.HasDefault && !d.ReadOnly
}

func isSearchable(d Descriptor) bool { return d.Searchable }

func isEditable(d Descriptor) bool {
	return !d.ReadOnly && !d.Restricted && d.Type != TypeUUID
}

// Projection returns the named view of the table. The slice is the memoized
// original computed at construction; callers must not mutate it.
func (t *Table) Projection(p Projection) ([]string, error) {
	names, ok := t.projections[p]
	if !ok {
		return nil, fmt.Errorf("schema: entity type %q has no projection %q", t.entity, p)
	}
	return names, nil
}

// MustProjection is Projection for startup paths where an unknown projection
// name is a configuration error.
func (t *Table) MustProjection(p Projection) []string {
	names, err := t.Projection(p)
	if err != nil {
		panic(err)
	}
	return names
}
