package schema

import (
	"fmt"
	"sync"
)

// The registry maps entity type names to their attribute tables. Entries are
// added during package init (each entity package registers its own table) and
// the map is never written after Freeze, making lookups safe without locks in
// the serving path.
var (
	mu       sync.Mutex
	registry = make(map[string]*Table)
	frozen   bool
)

// Register installs an entity's attribute table. Registering after Freeze or
// registering the same entity type twice is a configuration error.
func Register(t *Table) {
	mu.Lock()
	defer mu.Unlock()
	if frozen {
		panic(fmt.Sprintf("schema: cannot register entity type %q after freeze", t.entity))
	}
	if _, dup := registry[t.entity]; dup {
		panic(fmt.Sprintf("schema: entity type %q registered twice", t.entity))
	}
	registry[t.entity] = t
}

// Freeze marks the registry immutable. Call once at startup, after all entity
// packages have initialized.
func Freeze() {
	mu.Lock()
	defer mu.Unlock()
	frozen = true
}

// Lookup returns the attribute table for an entity type.
func Lookup(entity string) (*Table, error) {
	mu.Lock()
	t, ok := registry[entity]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("schema: entity type %q declares no schema", entity)
	}
	return t, nil
}

// MustLookup is Lookup for startup paths where a missing schema is fatal.
func MustLookup(entity string) *Table {
	t, err := Lookup(entity)
	if err != nil {
		panic(err)
	}
	return t
}

// GetProjection resolves an (entity type, projection) pair in one step.
func GetProjection(entity string, p Projection) ([]string, error) {
	t, err := Lookup(entity)
	if err != nil {
		return nil, err
	}
	return t.Projection(p)
}
