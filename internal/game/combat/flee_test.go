package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

// Every flee attempt must agree with the pure roll for the same actor and
// instant, and a failed attempt must cost one enemy swing.
func TestFlee_AgreesWithRoll(t *testing.T) {
	h := newHarness(t)
	c := fighter(1, "Ada")
	c.HP, c.MaxHP = 1000, 1000
	h.add(c)
	chance := combat.FleeChance(400)
	require.Equal(t, 10, chance)

	var escaped, caught int
	var encounterID int64
	for i := 0; i < 50; i++ {
		// 7001µs steps walk the seed through consecutive percent rolls.
		h.clock.Advance(7001 * time.Microsecond)
		if encounterID == 0 {
			encounterID = h.engage(1, "pit").EncounterID
		}
		before := h.character(1).HP
		want := combat.FleeSucceeds(dice.Seed(1, h.clock.Now().UnixMicro()), chance)

		r, err := h.engine.Flee(h.ctx, 1)
		require.NoError(t, err)
		require.Equal(t, want, r.OK, "attempt %d", i)
		assert.Equal(t, encounterID, r.EncounterID)

		enc := h.encounter(encounterID)
		if want {
			escaped++
			assert.Equal(t, combat.StatusFled, enc.Participant(1).Status)
			assert.Equal(t, combat.ResolutionFled, enc.Outcome)
			assert.Equal(t, before, h.character(1).HP)
			assert.Equal(t, combat.SpawnAvailable, h.spawn("pit").State)
			encounterID = 0
			continue
		}
		caught++
		assert.True(t, enc.HasActive(1))
		assert.Equal(t, before-1, h.character(1).HP, "the ogre punishes the attempt")
	}
	assert.NotZero(t, escaped)
	assert.NotZero(t, caught)
}

func TestFlee_NotFighting(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))

	r, err := h.engine.Flee(h.ctx, 1)
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.Zero(t, r.EncounterID)
}

func TestFlee_GroupFightGoesOn(t *testing.T) {
	h := newHarness(t)
	ada := fighter(1, "Ada")
	ada.GroupID = 3
	bo := fighter(2, "Bo")
	bo.GroupID = 3
	bo.AutoJoin = true
	h.add(ada)
	h.add(bo)
	enc := h.engage(1, "pit")

	r, err := h.engine.Disconnect(h.ctx, 1)
	require.NoError(t, err)
	require.True(t, r.OK)

	e := h.encounter(enc.EncounterID)
	assert.Equal(t, combat.StateActive, e.State)
	assert.Equal(t, combat.StatusFled, e.Participant(1).Status)
	assert.Equal(t, combat.CharacterHolder(2), e.Enemies[0].Target, "threat moves to whoever is left")

	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, snap.Encounter)

	r, err = h.engine.Engage(h.ctx, 1, h.spawnID("den"))
	require.NoError(t, err)
	assert.True(t, r.OK, "a fled character is free to start another fight")
}

func TestFlee_RetaliationLandsOnTheFleer(t *testing.T) {
	h := newHarness(t)
	ada := fighter(1, "Ada")
	ada.GroupID = 3
	bo := fighter(2, "Bo")
	bo.GroupID = 3
	bo.AutoJoin = true
	h.add(ada)
	h.add(bo)
	enc := h.engage(1, "pit")

	r, err := h.engine.UseAbility(h.ctx, 2, "taunt", 0)
	require.NoError(t, err)
	require.True(t, r.OK, r.Messages)
	require.Equal(t, combat.CharacterHolder(2), h.encounter(enc.EncounterID).Enemies[0].Target)

	chance := combat.FleeChance(400)
	for combat.FleeSucceeds(dice.Seed(1, h.clock.Now().UnixMicro()), chance) {
		h.clock.Advance(7001 * time.Microsecond)
	}
	r, err = h.engine.Flee(h.ctx, 1)
	require.NoError(t, err)
	require.False(t, r.OK)

	assert.Equal(t, 99, h.character(1).HP, "the failed fleer takes the swing")
	assert.Equal(t, 100, h.character(2).HP, "the ogre's target is spared")
	assert.Equal(t, combat.CharacterHolder(2), h.encounter(enc.EncounterID).Enemies[0].Target)
}
