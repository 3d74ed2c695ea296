// Package perk holds perk definitions and the process-wide perk registry.
package perk

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
)

// Kind separates passive procs from hotbar-invoked active perks.
type Kind string

const (
	KindPassive Kind = "passive"
	KindActive  Kind = "active"
)

// Trigger is the combat event a passive perk reacts to.
type Trigger string

const (
	OnHit         Trigger = "on_hit"
	OnKill        Trigger = "on_kill"
	OnAbility     Trigger = "on_ability"
	OnDamageTaken Trigger = "on_damage_taken"
	OnHeal        Trigger = "on_heal"
)

// Shape is the sub-effect a passive perk produces when it procs.
type Shape string

const (
	ShapeFlatDamage    Shape = "bonus_damage_flat"
	ShapePercentDamage Shape = "bonus_damage_percent"
	ShapeHealPercent   Shape = "heal_percent"
	ShapeBuff          Shape = "buff"
	// ShapeAoE damages every other living enemy. Only valid for on_kill.
	ShapeAoE Shape = "aoe_damage"
)

// ActiveType is the behaviour of an active perk.
type ActiveType string

const (
	ActiveHeal   ActiveType = "active_heal"
	ActiveDamage ActiveType = "active_damage"
	ActiveBuff   ActiveType = "active_buff"
)

// Perk is the static definition of a perk.
type Perk struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	Rank int    `yaml:"rank"`
	Kind Kind   `yaml:"kind"`

	// Passive fields.
	Trigger Trigger `yaml:"trigger"`
	Chance  int     `yaml:"chance"`
	Shape   Shape   `yaml:"shape"`
	// Amount is flat damage for bonus_damage_flat and aoe_damage, otherwise a percent.
	Amount     int         `yaml:"amount"`
	EffectType effect.Type `yaml:"effect_type"`
	Rounds     int         `yaml:"rounds"`
	// Script names a Lua hook returning extra bonus damage.
	Script string `yaml:"script"`

	// Active fields.
	Active     ActiveType    `yaml:"active"`
	AbilityKey string        `yaml:"ability_key"`
	Cooldown   time.Duration `yaml:"cooldown"`
	// Power is a percent of max HP for active_heal, of the weapon baseline for
	// active_damage, and the effect magnitude for active_buff.
	Power int `yaml:"power"`
}

// CooldownKey is the key under which this perk's cooldown is stored.
func (p *Perk) CooldownKey() string {
	if p.AbilityKey != "" {
		return p.AbilityKey
	}
	return "perk:" + p.Key
}

// Validate checks the perk's invariants.
func (p *Perk) Validate() error {
	if p.Key == "" {
		return fmt.Errorf("perk: key must not be empty")
	}
	if p.Rank < 1 {
		return fmt.Errorf("perk %q: rank must be >= 1", p.Key)
	}
	switch p.Kind {
	case KindPassive:
		return p.validatePassive()
	case KindActive:
		return p.validateActive()
	default:
		return fmt.Errorf("perk %q: unknown kind %q", p.Key, p.Kind)
	}
}

func (p *Perk) validatePassive() error {
	switch p.Trigger {
	case OnHit, OnKill, OnAbility, OnDamageTaken, OnHeal:
	default:
		return fmt.Errorf("perk %q: unknown trigger %q", p.Key, p.Trigger)
	}
	if p.Chance < 0 || p.Chance > 100 {
		return fmt.Errorf("perk %q: chance must be 0-100, got %d", p.Key, p.Chance)
	}
	switch p.Shape {
	case ShapeFlatDamage, ShapePercentDamage, ShapeHealPercent:
	case ShapeBuff:
		if !p.EffectType.Valid() || p.Rounds < 1 {
			return fmt.Errorf("perk %q: buff needs a valid effect_type and rounds >= 1", p.Key)
		}
	case ShapeAoE:
		if p.Trigger != OnKill {
			return fmt.Errorf("perk %q: aoe_damage requires the on_kill trigger", p.Key)
		}
	default:
		return fmt.Errorf("perk %q: unknown shape %q", p.Key, p.Shape)
	}
	return nil
}

func (p *Perk) validateActive() error {
	switch p.Active {
	case ActiveHeal, ActiveDamage:
	case ActiveBuff:
		if !p.EffectType.Valid() || p.Rounds < 1 {
			return fmt.Errorf("perk %q: active_buff needs a valid effect_type and rounds >= 1", p.Key)
		}
	default:
		return fmt.Errorf("perk %q: unknown active type %q", p.Key, p.Active)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("perk %q: cooldown must not be negative", p.Key)
	}
	if p.Power < 1 {
		return fmt.Errorf("perk %q: power must be >= 1", p.Key)
	}
	return nil
}
