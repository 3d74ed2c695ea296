// Package effect models timed combat modifiers applied to characters and enemies.
//
// Effects are plain values so they can be persisted as rows; the helpers in this
// package operate on slices and never share state between calls.
package effect

import "fmt"

// Type tags what an effect modifies.
type Type string

const (
	DamageBonus   Type = "damage_bonus"
	DamagePenalty Type = "damage_penalty"
	ArmorBonus    Type = "armor_bonus"
	ArmorPenalty  Type = "armor_penalty"
	// DoT deals Magnitude damage on every effect tick.
	DoT Type = "dot"
	// HoT heals Magnitude on every effect tick.
	HoT Type = "hot"
)

// Valid reports whether t is a known effect type.
func (t Type) Valid() bool {
	switch t {
	case DamageBonus, DamagePenalty, ArmorBonus, ArmorPenalty, DoT, HoT:
		return true
	}
	return false
}

// HolderKind distinguishes the two kinds of effect holder.
type HolderKind string

const (
	HolderCharacter HolderKind = "character"
	HolderEnemy     HolderKind = "enemy"
)

// Holder identifies the entity an effect list belongs to.
type Holder struct {
	Kind HolderKind
	ID   int64
}

func (h Holder) String() string {
	return fmt.Sprintf("%s:%d", h.Kind, h.ID)
}

// Effect is one timed modifier.
type Effect struct {
	Type       Type
	Magnitude  int
	RoundsLeft int
	// Source is the ability or perk key that applied the effect. May be empty.
	Source string
}

// Apply adds e to list. An existing effect with the same Type and Source is
// refreshed instead of stacked: its magnitude is replaced and its rounds become
// the larger of the two.
//
// Precondition: e.RoundsLeft > 0.
// Postcondition: at most one effect per (Type, Source) pair is present.
func Apply(list []Effect, e Effect) []Effect {
	out := make([]Effect, len(list), len(list)+1)
	copy(out, list)
	for i := range out {
		if out[i].Type == e.Type && out[i].Source == e.Source {
			out[i].Magnitude = e.Magnitude
			if e.RoundsLeft > out[i].RoundsLeft {
				out[i].RoundsLeft = e.RoundsLeft
			}
			return out
		}
	}
	return append(out, e)
}

// Periodic is the damage and healing produced by one effect tick.
type Periodic struct {
	Damage int
	Heal   int
}

// Tick applies one round to list. DoT and HoT magnitudes are summed into the
// returned Periodic before rounds are decremented; effects reaching zero rounds
// are returned in expired and dropped from remaining.
//
// Postcondition: every effect in remaining has RoundsLeft > 0.
func Tick(list []Effect) (remaining []Effect, periodic Periodic, expired []Effect) {
	for _, e := range list {
		switch e.Type {
		case DoT:
			periodic.Damage += e.Magnitude
		case HoT:
			periodic.Heal += e.Magnitude
		}
		e.RoundsLeft--
		if e.RoundsLeft <= 0 {
			expired = append(expired, e)
			continue
		}
		remaining = append(remaining, e)
	}
	return remaining, periodic, expired
}

// Remove drops every effect applied by source.
func Remove(list []Effect, source string) []Effect {
	var out []Effect
	for _, e := range list {
		if e.Source != source {
			out = append(out, e)
		}
	}
	return out
}
