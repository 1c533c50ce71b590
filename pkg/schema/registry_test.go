package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRegistry() {
	mu.Lock()
	registry = make(map[string]*Table)
	frozen = false
	mu.Unlock()
}

func TestRegistryLookup(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	Register(NewTable("gadgets",
		Descriptor{Name: "id", Type: TypeUUID, HasDefault: true},
		Descriptor{Name: "label", Type: TypeString, NotNull: true},
	))
	Freeze()

	tbl, err := Lookup("gadgets")
	require.NoError(t, err)
	assert.Equal(t, "gadgets", tbl.Entity())

	names, err := GetProjection("gadgets", Mandatory)
	require.NoError(t, err)
	assert.Equal(t, []string{"label"}, names)
}

func TestRegistryMissingEntity(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	_, err := Lookup("nonexistent")
	assert.Error(t, err)

	_, err = GetProjection("nonexistent", Public)
	assert.Error(t, err)

	assert.Panics(t, func() { MustLookup("nonexistent") })
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	Freeze()
	assert.Panics(t, func() {
		Register(NewTable("late", Descriptor{Name: "id", Type: TypeUUID}))
	})
}

func TestRegisterTwicePanics(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	tbl := NewTable("once", Descriptor{Name: "id", Type: TypeUUID})
	Register(tbl)
	assert.Panics(t, func() { Register(tbl) })
}
