// Package npc provides enemy templates, spawn definitions, and loot tables loaded from YAML.
package npc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

// Role adjusts a template when an enemy is materialized.
type Role string

const (
	RoleNormal Role = ""
	RoleElite  Role = "elite"
	RoleMinion Role = "minion"
)

// AbilityKind is the behaviour of an enemy ability.
type AbilityKind string

const (
	AbilityDamage AbilityKind = "damage"
	AbilityHeal   AbilityKind = "heal"
	AbilityDebuff AbilityKind = "debuff"
	AbilitySummon AbilityKind = "summon"
)

// EnemyAbility is an ability an enemy may use during combat.
type EnemyAbility struct {
	Key  string      `yaml:"key"`
	Name string      `yaml:"name"`
	Kind AbilityKind `yaml:"kind"`
	// Power is a dice expression, e.g. "2d6+3".
	Power    string        `yaml:"power"`
	CastTime time.Duration `yaml:"cast_time"`
	Cooldown time.Duration `yaml:"cooldown"`
	// Chance is the percent chance the enemy uses this ability when it is ready.
	Chance int `yaml:"chance"`
	// Magic abilities bypass armor.
	Magic      bool   `yaml:"magic"`
	EffectType string `yaml:"effect_type"`
	Magnitude  int    `yaml:"magnitude"`
	Rounds     int    `yaml:"rounds"`
	// Summons names the template brought in by a summon ability.
	Summons string `yaml:"summons"`

	expr dice.Expression
}

// Expression returns the parsed Power expression.
func (a *EnemyAbility) Expression() dice.Expression { return a.expr }

// Template defines a reusable enemy archetype.
type Template struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	Level        int            `yaml:"level"`
	MaxHP        int            `yaml:"max_hp"`
	AttackDamage int            `yaml:"attack_damage"`
	ArmorClass   int            `yaml:"armor_class"`
	AttackSpeed  time.Duration  `yaml:"attack_speed"`
	CreatureType string         `yaml:"creature_type"`
	Tier         string         `yaml:"tier"`
	XP           int            `yaml:"xp"`
	Faction      string         `yaml:"faction"`
	Abilities    []EnemyAbility `yaml:"abilities"`
}

// Validate checks that the template satisfies basic invariants and parses
// ability power expressions.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff every field and ability is well formed.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("enemy template %q: level must be >= 1", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("enemy template %q: max_hp must be >= 1", t.ID)
	}
	if t.AttackDamage < 0 || t.ArmorClass < 0 {
		return fmt.Errorf("enemy template %q: attack_damage and armor_class must be >= 0", t.ID)
	}
	if t.AttackSpeed <= 0 {
		return fmt.Errorf("enemy template %q: attack_speed must be positive", t.ID)
	}
	if t.CreatureType == "" {
		return fmt.Errorf("enemy template %q: creature_type must not be empty", t.ID)
	}
	for i := range t.Abilities {
		a := &t.Abilities[i]
		if a.Key == "" {
			return fmt.Errorf("enemy template %q: ability[%d] key must not be empty", t.ID, i)
		}
		switch a.Kind {
		case AbilityDamage, AbilityHeal, AbilityDebuff:
			e, err := dice.Parse(a.Power)
			if err != nil {
				return fmt.Errorf("enemy template %q ability %q: %w", t.ID, a.Key, err)
			}
			a.expr = e
		case AbilitySummon:
			if a.Summons == "" {
				return fmt.Errorf("enemy template %q ability %q: summons must not be empty", t.ID, a.Key)
			}
		default:
			return fmt.Errorf("enemy template %q ability %q: unknown kind %q", t.ID, a.Key, a.Kind)
		}
		if a.Chance < 0 || a.Chance > 100 {
			return fmt.Errorf("enemy template %q ability %q: chance must be 0-100", t.ID, a.Key)
		}
		if a.CastTime < 0 || a.Cooldown < 0 {
			return fmt.Errorf("enemy template %q ability %q: cast_time and cooldown must not be negative", t.ID, a.Key)
		}
	}
	return nil
}

// Scaled returns max HP and attack damage after applying role.
//
// Postcondition: elite is HP x1.5 and damage x1.25; minion is HP x0.5 (minimum 1).
func (t *Template) Scaled(role Role) (maxHP, attackDamage int) {
	switch role {
	case RoleElite:
		return t.MaxHP * 3 / 2, t.AttackDamage * 5 / 4
	case RoleMinion:
		hp := t.MaxHP / 2
		if hp < 1 {
			hp = 1
		}
		return hp, t.AttackDamage
	default:
		return t.MaxHP, t.AttackDamage
	}
}

// Ability returns the ability with key.
func (t *Template) Ability(key string) (*EnemyAbility, bool) {
	for i := range t.Abilities {
		if t.Abilities[i].Key == key {
			return &t.Abilities[i], true
		}
	}
	return nil, false
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate failure.
func LoadTemplates(dir string) ([]*Template, error) {
	var templates []*Template
	err := eachYAML(dir, func(path string, dec *yaml.Decoder) error {
		var tmpl Template
		if err := dec.Decode(&tmpl); err != nil {
			return err
		}
		if err := tmpl.Validate(); err != nil {
			return err
		}
		templates = append(templates, &tmpl)
		return nil
	})
	return templates, err
}

func eachYAML(dir string, fn func(path string, dec *yaml.Decoder) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := fn(path, dec); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
