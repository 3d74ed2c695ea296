package npc

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Member is one enemy a spawn materializes.
type Member struct {
	Template string `yaml:"template"`
	Role     Role   `yaml:"role"`
}

// SpawnDef is a location-bound, reusable source of enemies.
type SpawnDef struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Terrain  string `yaml:"terrain"`
	// Danger feeds the flee chance of encounters against this spawn.
	Danger       int           `yaml:"danger"`
	Members      []Member      `yaml:"members"`
	NearbyAdds   []Member      `yaml:"nearby_adds"`
	RespawnDelay time.Duration `yaml:"respawn_delay"`
	Renown       int           `yaml:"renown"`
	// GroupLootTier, when set, rolls one shared loot table for group encounters.
	GroupLootTier string `yaml:"group_loot_tier"`
}

// Validate checks the spawn's own fields. Template references are checked by the Catalog.
func (s *SpawnDef) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spawn: id must not be empty")
	}
	if s.Location == "" {
		return fmt.Errorf("spawn %q: location must not be empty", s.ID)
	}
	if len(s.Members) == 0 {
		return fmt.Errorf("spawn %q: members must not be empty", s.ID)
	}
	if s.RespawnDelay < 0 {
		return fmt.Errorf("spawn %q: respawn_delay must not be negative", s.ID)
	}
	for i, m := range append(append([]Member{}, s.Members...), s.NearbyAdds...) {
		switch m.Role {
		case RoleNormal, RoleElite, RoleMinion:
		default:
			return fmt.Errorf("spawn %q: member[%d] has unknown role %q", s.ID, i, m.Role)
		}
	}
	return nil
}

// LoadSpawns reads all *.yaml files in dir. Each file holds a list of spawns.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all spawns or an error on the first parse or validate failure.
func LoadSpawns(dir string) ([]*SpawnDef, error) {
	var spawns []*SpawnDef
	err := eachYAML(dir, func(path string, dec *yaml.Decoder) error {
		var file struct {
			Spawns []*SpawnDef `yaml:"spawns"`
		}
		if err := dec.Decode(&file); err != nil {
			return err
		}
		for _, s := range file.Spawns {
			if err := s.Validate(); err != nil {
				return err
			}
		}
		spawns = append(spawns, file.Spawns...)
		return nil
	})
	return spawns, err
}
