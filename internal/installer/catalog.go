package installer

import (
	"fmt"
	"strings"
)

// Catalog indexes engines by id and display name.
type Catalog struct {
	engines []Engine
	byKey   map[string]Engine
}

// NewCatalog builds a catalog. Ids must be unique.
func NewCatalog(engines ...Engine) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]Engine, len(engines)*2)}
	ids := make(map[string]bool, len(engines))
	for _, e := range engines {
		d := e.Descriptor()
		id := strings.ToLower(d.ID)
		if id == "" {
			return nil, fmt.Errorf("engine %q has no id", d.Name)
		}
		if ids[id] {
			return nil, fmt.Errorf("duplicate engine id %q", d.ID)
		}
		ids[id] = true
		c.engines = append(c.engines, e)
	}
	// Ids win over display names when they collide.
	for _, e := range c.engines {
		if name := strings.ToLower(e.Descriptor().Name); name != "" && !ids[name] {
			c.byKey[name] = e
		}
	}
	for _, e := range c.engines {
		c.byKey[strings.ToLower(e.Descriptor().ID)] = e
	}
	return c, nil
}

// Lookup finds an engine by id or display name, case-insensitively.
func (c *Catalog) Lookup(nameOrID string) (Engine, bool) {
	e, ok := c.byKey[strings.ToLower(strings.TrimSpace(nameOrID))]
	return e, ok
}

// All returns the engines in registration order.
func (c *Catalog) All() []Engine {
	return append([]Engine(nil), c.engines...)
}

// Supported returns the ids of engines that support token.
func (c *Catalog) Supported(token string) []string {
	var ids []string
	for _, e := range c.engines {
		if d := e.Descriptor(); d.Supports(token) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// DefaultSelection returns the ids of engines installed by default on
// token.
func (c *Catalog) DefaultSelection(token string) []string {
	var ids []string
	for _, e := range c.engines {
		if d := e.Descriptor(); d.InstallByDefault(token) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
