// Package combat implements the real-time encounter engine: engagement, scheduled
// ticks, threat, ability and perk resolution, pulls, flee, and outcome emission.
//
// Every entry point runs as one Store transaction. Narrative messages, progression
// grants and scheduled tasks leave the transaction only after it commits.
package combat

import "github.com/cory-johannsen/mudcombat/internal/game/dice"

// Mitigate applies armor to a physical hit.
//
// Postcondition: damage <= 0 returns 0; otherwise returns max(1, damage - armor)
// with negative armor treated as zero.
func Mitigate(damage, armor int) int {
	if damage <= 0 {
		return 0
	}
	if armor < 0 {
		armor = 0
	}
	if d := damage - armor; d > 1 {
		return d
	}
	return 1
}

// Baseline is the weapon damage baseline for an actor.
//
// Postcondition: returns 5 + level + weaponBase + weaponDPS/2.
func Baseline(level, weaponBase, weaponDPS int) int {
	return 5 + level + weaponBase + weaponDPS/2
}

// Power scales baseline by percent and adds flat.
func Power(baseline, percent, flat int) int {
	return baseline*percent/100 + flat
}

// FleeChance is the percent chance a flee attempt succeeds against danger.
//
// Postcondition: returns clamp(120 - floor(danger/3), 10, 95).
func FleeChance(danger int) int {
	c := 120 - floorDiv(danger, 3)
	switch {
	case c < 10:
		return 10
	case c > 95:
		return 95
	default:
		return c
	}
}

// FleeSucceeds evaluates one flee roll.
func FleeSucceeds(seed uint64, chance int) bool {
	return dice.Chance(seed, chance)
}

// PerkProcs reports whether the perk at index in a character's chosen list procs.
//
// Postcondition: true iff chance > 0 and (seed + index) mod 100 < chance.
func PerkProcs(seed uint64, index, chance int) bool {
	if chance <= 0 {
		return false
	}
	return int((seed+uint64(index))%100) < chance
}

// SplitPeriodic divides power between an instant portion and a per-tick portion
// spread over duration ticks.
//
// Precondition: duration >= 1.
// Postcondition: instant == power*25/100; perTick >= 1 whenever power > 0.
func SplitPeriodic(power, duration int) (instant, perTick int) {
	if power <= 0 {
		return 0, 0
	}
	if duration < 1 {
		duration = 1
	}
	instant = power * 25 / 100
	perTick = (power - instant) / duration
	if perTick < 1 {
		perTick = 1
	}
	return instant, perTick
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func percentOf(v, pct int) int {
	return v * pct / 100
}

func clampHP(hp, maxHP int) int {
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}
