package npc

import (
	"errors"
	"fmt"
	"sort"
)

// ErrTemplateNotFound is returned when a template id is unknown.
var ErrTemplateNotFound = errors.New("enemy template not found")

// ErrSpawnNotFound is returned when a spawn id is unknown.
var ErrSpawnNotFound = errors.New("spawn definition not found")

// Catalog is the immutable set of enemy templates and spawn definitions.
type Catalog struct {
	templates map[string]*Template
	spawns    map[string]*SpawnDef
}

// NewCatalog indexes templates and spawns and checks every spawn's template references.
//
// Postcondition: Returns a Catalog in which every spawn member resolves, or an error.
func NewCatalog(templates []*Template, spawns []*SpawnDef) (*Catalog, error) {
	c := &Catalog{
		templates: make(map[string]*Template, len(templates)),
		spawns:    make(map[string]*SpawnDef, len(spawns)),
	}
	for _, t := range templates {
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate enemy template %q", t.ID)
		}
		c.templates[t.ID] = t
	}
	for _, t := range templates {
		for _, a := range t.Abilities {
			if a.Kind == AbilitySummon {
				if _, ok := c.templates[a.Summons]; !ok {
					return nil, fmt.Errorf("template %q ability %q summons unknown template %q", t.ID, a.Key, a.Summons)
				}
			}
		}
	}
	for _, s := range spawns {
		if _, dup := c.spawns[s.ID]; dup {
			return nil, fmt.Errorf("duplicate spawn %q", s.ID)
		}
		for _, m := range append(append([]Member{}, s.Members...), s.NearbyAdds...) {
			if _, ok := c.templates[m.Template]; !ok {
				return nil, fmt.Errorf("spawn %q references unknown template %q", s.ID, m.Template)
			}
		}
		c.spawns[s.ID] = s
	}
	return c, nil
}

// LoadCatalog loads templates and spawns from their directories.
func LoadCatalog(enemiesDir, spawnsDir string) (*Catalog, error) {
	templates, err := LoadTemplates(enemiesDir)
	if err != nil {
		return nil, err
	}
	spawns, err := LoadSpawns(spawnsDir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(templates, spawns)
}

// Template returns the template with id.
func (c *Catalog) Template(id string) (*Template, error) {
	t, ok := c.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return t, nil
}

// Spawn returns the spawn definition with id.
func (c *Catalog) Spawn(id string) (*SpawnDef, error) {
	s, ok := c.spawns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSpawnNotFound, id)
	}
	return s, nil
}

// Spawns returns every spawn definition ordered by id.
func (c *Catalog) Spawns() []*SpawnDef {
	out := make([]*SpawnDef, 0, len(c.spawns))
	for _, s := range c.spawns {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
