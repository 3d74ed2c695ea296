// Package ability defines character abilities and their registry.
package ability

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
)

// Kind is what an ability does when it resolves.
type Kind string

const (
	KindDamage    Kind = "damage"
	KindDoT       Kind = "dot"
	KindHeal      Kind = "heal"
	KindHoT       Kind = "hot"
	KindBuff      Kind = "buff"
	KindDebuff    Kind = "debuff"
	KindTaunt     Kind = "taunt"
	KindInterrupt Kind = "interrupt"
)

// Gate restricts where an ability may be used.
type Gate string

const (
	GateAny         Gate = "any"
	GateCombatOnly  Gate = "combat_only"
	GateOutOfCombat Gate = "out_of_combat_only"
)

// Resource is the pool an ability's cost is paid from.
type Resource string

const (
	ResourceNone    Resource = ""
	ResourceMana    Resource = "mana"
	ResourceStamina Resource = "stamina"
)

// School decides whether armor mitigates an ability's damage.
type School string

const (
	SchoolPhysical School = "physical"
	SchoolMagic    School = "magic"
)

// Def is the static definition of an ability.
type Def struct {
	Key      string        `yaml:"key"`
	Name     string        `yaml:"name"`
	Kind     Kind          `yaml:"kind"`
	Gate     Gate          `yaml:"gate"`
	Resource Resource      `yaml:"resource"`
	Cost     int           `yaml:"cost"`
	CastTime time.Duration `yaml:"cast_time"`
	Cooldown time.Duration `yaml:"cooldown"`
	School   School        `yaml:"school"`
	// ScalingPercent scales the weapon baseline; 0 means 100.
	ScalingPercent int `yaml:"scaling_percent"`
	Flat           int `yaml:"flat"`
	// Duration is the number of effect ticks for dot, hot, buff and debuff abilities.
	Duration   int         `yaml:"duration"`
	EffectType effect.Type `yaml:"effect_type"`
	Magnitude  int         `yaml:"magnitude"`
}

// Hostile reports whether the ability targets an enemy.
func (d *Def) Hostile() bool {
	switch d.Kind {
	case KindDamage, KindDoT, KindDebuff, KindTaunt, KindInterrupt:
		return true
	}
	return false
}

// Scaling returns the effective scaling percent.
func (d *Def) Scaling() int {
	if d.ScalingPercent == 0 {
		return 100
	}
	return d.ScalingPercent
}

// Validate checks the definition and fills defaults.
//
// Postcondition: Gate and School are non-empty on success.
func (d *Def) Validate() error {
	if d.Key == "" {
		return fmt.Errorf("ability: key must not be empty")
	}
	if d.Name == "" {
		d.Name = d.Key
	}
	switch d.Kind {
	case KindDamage, KindDoT, KindHeal, KindHoT, KindBuff, KindDebuff, KindTaunt, KindInterrupt:
	default:
		return fmt.Errorf("ability %q: unknown kind %q", d.Key, d.Kind)
	}
	if d.Gate == "" {
		d.Gate = GateAny
	}
	switch d.Gate {
	case GateAny, GateCombatOnly, GateOutOfCombat:
	default:
		return fmt.Errorf("ability %q: unknown gate %q", d.Key, d.Gate)
	}
	if d.Hostile() && d.Gate == GateOutOfCombat {
		return fmt.Errorf("ability %q: hostile abilities cannot be out_of_combat_only", d.Key)
	}
	switch d.Resource {
	case ResourceNone, ResourceMana, ResourceStamina:
	default:
		return fmt.Errorf("ability %q: unknown resource %q", d.Key, d.Resource)
	}
	if d.School == "" {
		d.School = SchoolPhysical
	}
	if d.Cost < 0 || d.CastTime < 0 || d.Cooldown < 0 {
		return fmt.Errorf("ability %q: cost, cast_time and cooldown must not be negative", d.Key)
	}
	switch d.Kind {
	case KindDoT, KindHoT, KindBuff, KindDebuff:
		if d.Duration < 1 {
			return fmt.Errorf("ability %q: duration must be >= 1 for %s", d.Key, d.Kind)
		}
	}
	if d.Kind == KindBuff || d.Kind == KindDebuff {
		if !d.EffectType.Valid() {
			return fmt.Errorf("ability %q: invalid effect_type %q", d.Key, d.EffectType)
		}
	}
	return nil
}

// Registry is the immutable set of ability definitions.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry validates and indexes defs.
//
// Postcondition: Returns a Registry with one entry per key, or an error on duplicates.
func NewRegistry(defs []*Def) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Def, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Key]; dup {
			return nil, fmt.Errorf("duplicate ability %q", d.Key)
		}
		r.defs[d.Key] = d
	}
	return r, nil
}

// Find returns the ability with key.
func (r *Registry) Find(key string) (*Def, bool) {
	d, ok := r.defs[key]
	return d, ok
}

// Keys returns every ability key in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDirectory reads every *.yaml file in dir. Each file holds a list under "abilities".
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
	}
	var defs []*Def
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var file struct {
			Abilities []*Def `yaml:"abilities"`
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		defs = append(defs, file.Abilities...)
	}
	return NewRegistry(defs)
}
