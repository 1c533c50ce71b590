package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	return NewTable("widgets",
		Descriptor{Name: "id", Type: TypeUUID, HasDefault: true},
		Descriptor{Name: "name", Type: TypeCitext, NotNull: true, Searchable: true, Unique: true},
		Descriptor{Name: "secret_hash", Type: TypeString, Restricted: true},
		Descriptor{Name: "secret", Type: TypeVirtual},
		Descriptor{Name: "color", Type: TypeString},
		Descriptor{Name: "contact", Type: TypeCitext, NotNull: true, Private: true},
		Descriptor{Name: "is_locked", Type: TypeBoolean, HasDefault: true, ReadOnly: true},
		Descriptor{Name: "created_at", Type: TypeDate, ReadOnly: true, Restricted: true},
	)
}

func TestProjections(t *testing.T) {
	tbl := testTable(t)

	public, err := tbl.Projection(Public)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "color", "is_locked"}, public)

	owner, err := tbl.Projection(Owner)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "color", "contact", "is_locked"}, owner)

	mandatory, err := tbl.Projection(Mandatory)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "secret", "contact"}, mandatory)

	searchable, err := tbl.Projection(Searchable)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, searchable)

	editable, err := tbl.Projection(Editable)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "secret", "color", "contact"}, editable)
}

// Every public attribute must also be visible to the owner.
func TestPublicSubsetOfOwner(t *testing.T) {
	tbl := testTable(t)

	owner := make(map[string]bool)
	for _, name := range tbl.MustProjection(Owner) {
		owner[name] = true
	}
	for _, name := range tbl.MustProjection(Public) {
		assert.True(t, owner[name], "public attribute %q missing from owner view", name)
	}
}

func TestVirtualNeverPersistedButMandatory(t *testing.T) {
	tbl := testTable(t)

	for _, p := range []Projection{Public, Owner} {
		for _, name := range tbl.MustProjection(p) {
			d, ok := tbl.Lookup(name)
			require.True(t, ok)
			assert.NotEqual(t, TypeVirtual, d.Type, "virtual attribute leaked into %s view", p)
		}
	}

	assert.Contains(t, tbl.MustProjection(Mandatory), "secret")
	assert.Contains(t, tbl.MustProjection(Editable), "secret")
}

func TestProjectionIdempotent(t *testing.T) {
	tbl := testTable(t)

	first := tbl.MustProjection(Public)
	second := tbl.MustProjection(Public)
	assert.Equal(t, first, second)
}

func TestUnknownProjection(t *testing.T) {
	tbl := testTable(t)

	_, err := tbl.Projection(Projection("secret-view"))
	assert.Error(t, err)
}

func TestDeclarationOrderPreserved(t *testing.T) {
	tbl := testTable(t)
	assert.Equal(t,
		[]string{"id", "name", "secret_hash", "secret", "color", "contact", "is_locked", "created_at"},
		tbl.Fields())
}

func TestNewTablePanics(t *testing.T) {
	assert.Panics(t, func() { NewTable("") })
	assert.Panics(t, func() { NewTable("empty") })
	assert.Panics(t, func() {
		NewTable("dup",
			Descriptor{Name: "a", Type: TypeString},
			Descriptor{Name: "a", Type: TypeString},
		)
	})
	assert.Panics(t, func() {
		NewTable("unnamed", Descriptor{Type: TypeString})
	})
}
