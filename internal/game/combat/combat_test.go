package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

func TestMitigate(t *testing.T) {
	assert.Equal(t, 8, combat.Mitigate(13, 5))
	assert.Equal(t, 1, combat.Mitigate(3, 10), "a landed hit always does at least 1")
	assert.Equal(t, 0, combat.Mitigate(0, 0))
	assert.Equal(t, 13, combat.Mitigate(13, -4), "negative armor counts as none")
}

func TestMitigate_Property_ArmorFloor(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		damage := rapid.IntRange(-50, 1000).Draw(rt, "damage")
		armor := rapid.IntRange(-50, 1000).Draw(rt, "armor")
		got := combat.Mitigate(damage, armor)
		if damage <= 0 {
			assert.Equal(rt, 0, got)
			return
		}
		assert.GreaterOrEqual(rt, got, 1)
		assert.LessOrEqual(rt, got, damage)
		if armor >= 0 && damage-armor > 1 {
			assert.Equal(rt, damage-armor, got)
		}
	})
}

func TestBaselineAndPower(t *testing.T) {
	assert.Equal(t, 13, combat.Baseline(1, 4, 6))
	assert.Equal(t, 26, combat.Power(13, 200, 0))
	assert.Equal(t, 9, combat.Power(13, 50, 3))
}

func TestFleeChance(t *testing.T) {
	assert.Equal(t, 95, combat.FleeChance(0))
	assert.Equal(t, 95, combat.FleeChance(-30))
	assert.Equal(t, 90, combat.FleeChance(90))
	assert.Equal(t, 10, combat.FleeChance(400))
	assert.Equal(t, 10, combat.FleeChance(330))
	assert.Equal(t, 11, combat.FleeChance(327))
}

func TestFleeChance_Property_Bounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		danger := rapid.IntRange(-10000, 10000).Draw(rt, "danger")
		c := combat.FleeChance(danger)
		assert.GreaterOrEqual(rt, c, 10)
		assert.LessOrEqual(rt, c, 95)
		assert.GreaterOrEqual(rt, c, combat.FleeChance(danger+3), "more danger never helps")
	})
}

func TestFleeSucceeds_MatchesPercentRoll(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		actor := rapid.Int64Range(1, 1<<40).Draw(rt, "actor")
		now := rapid.Int64Range(0, 1<<55).Draw(rt, "now")
		chance := rapid.IntRange(10, 95).Draw(rt, "chance")
		seed := dice.Seed(actor, now)
		assert.Equal(rt, dice.Percent(seed) < chance, combat.FleeSucceeds(seed, chance))
	})
}

func TestPerkProcs(t *testing.T) {
	assert.False(t, combat.PerkProcs(5, 0, 0))
	assert.True(t, combat.PerkProcs(5, 0, 6))
	assert.False(t, combat.PerkProcs(5, 0, 5))
	assert.True(t, combat.PerkProcs(98, 3, 2), "index shifts the roll and wraps")
	assert.True(t, combat.PerkProcs(12345, 7, 100))
}

func TestSplitPeriodic(t *testing.T) {
	instant, perTick := combat.SplitPeriodic(40, 3)
	assert.Equal(t, 10, instant)
	assert.Equal(t, 10, perTick)

	instant, perTick = combat.SplitPeriodic(2, 5)
	assert.Equal(t, 0, instant)
	assert.Equal(t, 1, perTick, "a positive power always ticks")

	instant, perTick = combat.SplitPeriodic(0, 3)
	assert.Zero(t, instant)
	assert.Zero(t, perTick)
}

func TestSplitPeriodic_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		power := rapid.IntRange(1, 10000).Draw(rt, "power")
		duration := rapid.IntRange(1, 20).Draw(rt, "duration")
		instant, perTick := combat.SplitPeriodic(power, duration)
		assert.Equal(rt, power*25/100, instant)
		assert.GreaterOrEqual(rt, perTick, 1)
		if (power-instant)/duration >= 1 {
			assert.LessOrEqual(rt, instant+perTick*duration, power)
		}
	})
}
